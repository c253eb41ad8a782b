package places

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appErr "github.com/voltworks/portal/pkg/errors"
	"googlemaps.github.io/maps"
)

func TestDisabledWithoutKey(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	_, err = s.Autocomplete(context.Background(), "12 Main", "")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	_, err = s.Details(context.Background(), "abc")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}

func TestFromResultBuildsStreet(t *testing.T) {
	res := maps.PlaceDetailsResult{
		PlaceID:          "p1",
		FormattedAddress: "12 Main St, Springfield, IL 62701, USA",
		AddressComponents: []maps.AddressComponent{
			{LongName: "12", Types: []string{"street_number"}},
			{LongName: "Main Street", Types: []string{"route"}},
			{LongName: "Springfield", Types: []string{"locality", "political"}},
			{LongName: "Illinois", ShortName: "IL", Types: []string{"administrative_area_level_1"}},
			{LongName: "62701", Types: []string{"postal_code"}},
		},
	}
	res.Geometry.Location = maps.LatLng{Lat: 39.8, Lng: -89.6}

	d := fromResult(res)
	assert.Equal(t, "12 Main Street", d.Street)
	assert.Equal(t, "Springfield", d.City)
	assert.Equal(t, "IL", d.State)
	assert.Equal(t, "62701", d.Zip)
	assert.InDelta(t, 39.8, d.Latitude, 1e-9)
}
