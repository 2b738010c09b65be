package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// Place is the subset of Places data used to enrich activity details.
type Place struct {
	Name         string
	Address      string
	Rating       float32
	PlaceID      string
	Phone        string
	Website      string
	OpeningHours string
	MapsURL      string
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a new PlacesService with the given API Key.
// Extra options (e.g. maps.WithBaseURL) are passed to the maps client.
func NewPlacesService(apiKey string, opts ...maps.ClientOption) (*PlacesService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// LookupPlace finds the best text-search match for name near location and
// loads its contact details. It returns nil, nil when nothing matches.
func (s *PlacesService) LookupPlace(ctx context.Context, name, location string) (*Place, error) {
	query := name
	if location != "" {
		query = fmt.Sprintf("%s, %s", name, location)
	}
	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	best := resp.Results[0]
	place := &Place{
		Name:    best.Name,
		Address: best.FormattedAddress,
		Rating:  best.Rating,
		PlaceID: best.PlaceID,
	}

	details, err := s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{PlaceID: best.PlaceID})
	if err != nil {
		// the text search hit is still useful on its own
		return place, nil
	}
	place.Phone = details.FormattedPhoneNumber
	place.Website = details.Website
	place.MapsURL = details.URL
	if details.OpeningHours != nil && len(details.OpeningHours.WeekdayText) > 0 {
		place.OpeningHours = strings.Join(details.OpeningHours.WeekdayText, "; ")
	}
	if place.Address == "" {
		place.Address = details.FormattedAddress
	}
	return place, nil
}
