// Package places proxies address autocomplete and place details to Google Places.
package places

import (
	"context"
	"strings"

	"github.com/google/uuid"
	appErr "github.com/voltworks/portal/pkg/errors"
	"googlemaps.github.io/maps"
)

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID       string `json:"placeId"`
	Description   string `json:"description"`
	MainText      string `json:"mainText"`
	SecondaryText string `json:"secondaryText"`
}

// Details is the resolved address for a place.
type Details struct {
	PlaceID          string  `json:"placeId"`
	FormattedAddress string  `json:"formattedAddress"`
	Street           string  `json:"street"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	Zip              string  `json:"zip"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// Service answers place lookups. A Service without an API key reports unavailable.
type Service struct {
	client *maps.Client
}

// New builds the service; an empty key yields a Service whose calls fail as unavailable.
func New(apiKey string, opts ...maps.ClientOption) (*Service, error) {
	if apiKey == "" {
		return &Service{}, nil
	}
	c, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Service{client: c}, nil
}

func (s *Service) Enabled() bool { return s != nil && s.client != nil }

var errDisabled = appErr.New(appErr.CodeUnavailable, "address lookup is not configured")

func (s *Service) Autocomplete(ctx context.Context, input, sessionToken string) ([]Prediction, error) {
	if !s.Enabled() {
		return nil, errDisabled
	}
	if input == "" {
		return nil, appErr.Invalid("input is required")
	}
	req := &maps.PlaceAutocompleteRequest{
		Input: input,
		Types: maps.AutocompletePlaceTypeAddress,
	}
	if tok, err := uuid.Parse(sessionToken); err == nil {
		req.SessionToken = maps.PlaceAutocompleteSessionToken(tok)
	}
	resp, err := s.client.PlaceAutocomplete(ctx, req)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "address autocomplete failed")
	}
	out := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}

func (s *Service) Details(ctx context.Context, placeID string) (*Details, error) {
	if !s.Enabled() {
		return nil, errDisabled
	}
	if placeID == "" {
		return nil, appErr.Invalid("placeId is required")
	}
	res, err := s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskPlaceID,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskAddressComponent,
			maps.PlaceDetailsFieldMaskGeometryLocation,
		},
	})
	if err != nil {
		if msg := err.Error(); strings.Contains(msg, "NOT_FOUND") || strings.Contains(msg, "INVALID_REQUEST") {
			return nil, appErr.Wrap(err, appErr.CodeNotFound, "place not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "place details failed")
	}
	return fromResult(res), nil
}

func fromResult(res maps.PlaceDetailsResult) *Details {
	d := &Details{
		PlaceID:          res.PlaceID,
		FormattedAddress: res.FormattedAddress,
		Latitude:         res.Geometry.Location.Lat,
		Longitude:        res.Geometry.Location.Lng,
	}
	var number, route string
	for _, c := range res.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				number = c.LongName
			case "route":
				route = c.LongName
			case "locality":
				d.City = c.LongName
			case "administrative_area_level_1":
				d.State = c.ShortName
			case "postal_code":
				d.Zip = c.LongName
			}
		}
	}
	switch {
	case number != "" && route != "":
		d.Street = number + " " + route
	default:
		d.Street = route
	}
	return d
}
