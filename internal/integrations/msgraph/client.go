// Package msgraph is a small Microsoft Graph client covering profile, drive and site calls.
package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// Graph accepts simple PUT uploads below 4 MiB; larger files need an upload session.
	simpleUploadLimit = 4 << 20
	// Session chunks must be multiples of 320 KiB; 5 MiB is 16 of them.
	chunkSize = 5 << 20
)

// APIError carries a non-2xx Graph response. Body is the raw provider payload.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error: status %d: %s", e.Status, e.Body)
}

type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email prefers mail and falls back to the UPN.
func (p *Profile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

type DriveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	WebURL string `json:"webUrl"`
}

type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// Client calls Graph with an already-authorized http.Client (see golang.org/x/oauth2).
type Client struct {
	http    *http.Client
	baseURL string
}

func New(httpClient *http.Client) *Client {
	return &Client{http: httpClient, baseURL: DefaultBaseURL}
}

// WithBaseURL points the client at another endpoint, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, "/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Photo returns the signed-in user's profile photo bytes and content type.
func (c *Client) Photo(ctx context.Context) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/me/photo/$value", nil, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read photo: %w", err)
	}
	return b, resp.Header.Get("Content-Type"), nil
}

func (c *Client) ListSiteDrives(ctx context.Context, siteID string) ([]Drive, error) {
	var out struct {
		Value []Drive `json:"value"`
	}
	if err := c.getJSON(ctx, "/sites/"+url.PathEscape(siteID)+"/drives", &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Upload writes data to folder/name in the drive, creating the path as needed.
func (c *Client) Upload(ctx context.Context, driveID, itemPath string, data []byte) (*DriveItem, error) {
	if len(data) < simpleUploadLimit {
		return c.simpleUpload(ctx, driveID, itemPath, data)
	}
	return c.sessionUpload(ctx, driveID, itemPath, data)
}

func (c *Client) simpleUpload(ctx context.Context, driveID, itemPath string, data []byte) (*DriveItem, error) {
	u := fmt.Sprintf("%s/drives/%s/root:/%s:/content", c.baseURL, url.PathEscape(driveID), escapePath(itemPath))
	resp, err := c.do(ctx, http.MethodPut, u, bytes.NewReader(data), "application/octet-stream")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var item DriveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode drive item: %w", err)
	}
	return &item, nil
}

func (c *Client) sessionUpload(ctx context.Context, driveID, itemPath string, data []byte) (*DriveItem, error) {
	u := fmt.Sprintf("%s/drives/%s/root:/%s:/createUploadSession", c.baseURL, url.PathEscape(driveID), escapePath(itemPath))
	body := []byte(`{"item":{"@microsoft.graph.conflictBehavior":"replace"}}`)
	resp, err := c.do(ctx, http.MethodPost, u, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	err = json.NewDecoder(resp.Body).Decode(&session)
	resp.Body.Close()
	if err != nil || session.UploadURL == "" {
		return nil, fmt.Errorf("create upload session: missing upload url")
	}

	total := len(data)
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, bytes.NewReader(data[start:end]))
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(end - start)
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))
		// The upload URL is pre-authorized; sending the bearer token is rejected.
		chunkResp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("upload chunk: %w", err)
		}
		if chunkResp.StatusCode >= 300 {
			return nil, readAPIError(chunkResp)
		}
		if end == total {
			defer chunkResp.Body.Close()
			var item DriveItem
			if err := json.NewDecoder(chunkResp.Body).Decode(&item); err != nil {
				return nil, fmt.Errorf("decode drive item: %w", err)
			}
			return &item, nil
		}
		_, _ = io.Copy(io.Discard, chunkResp.Body)
		chunkResp.Body.Close()
	}
	return nil, fmt.Errorf("upload session ended without a drive item")
}

// Download streams an item's content. The caller closes the reader.
func (c *Client) Download(ctx context.Context, driveID, itemID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s/content", c.baseURL, url.PathEscape(driveID), url.PathEscape(itemID))
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) Delete(ctx context.Context, driveID, itemID string) error {
	u := fmt.Sprintf("%s/drives/%s/items/%s", c.baseURL, url.PathEscape(driveID), url.PathEscape(itemID))
	resp, err := c.do(ctx, http.MethodDelete, u, nil, "")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph %s %s: %w", method, u, err)
	}
	if resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{Status: resp.StatusCode, Body: string(b)}
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
