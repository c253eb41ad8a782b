package msgraph

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeAndAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			_, _ = w.Write([]byte(`{"id":"abc","displayName":"Pat Tech","userPrincipalName":"pat@voltworks.test"}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":"accessDenied"}}`))
		}
	}))
	defer srv.Close()

	c := New(srv.Client()).WithBaseURL(srv.URL)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pat@voltworks.test", me.Email())

	_, err = c.ListSiteDrives(context.Background(), "site-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Body, "accessDenied")
}

func TestSimpleUploadDownloadDelete(t *testing.T) {
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/drives/d1/root:/Portal Backups/a.zip:/content":
			uploaded, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{"id":"item-1","name":"a.zip","size":3}`))
		case r.Method == http.MethodGet && r.URL.Path == "/drives/d1/items/item-1/content":
			_, _ = w.Write(uploaded)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := New(srv.Client()).WithBaseURL(srv.URL)
	item, err := c.Upload(context.Background(), "d1", "Portal Backups/a.zip", []byte("zip"))
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)

	rc, err := c.Download(context.Background(), "d1", "item-1")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "zip", string(b))

	// already gone counts as deleted
	assert.NoError(t, c.Delete(context.Background(), "d1", "item-1"))
}
