package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

// ErrNoRoute is returned when Directions finds no path between the stops.
var ErrNoRoute = errors.New("no route found")

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

type Leg struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Duration time.Duration `json:"duration"`
	Distance string        `json:"distance"`
	Meters   int           `json:"meters"`
}

// RouteSummary is the driving estimate for a day's stops, in visiting order.
type RouteSummary struct {
	Legs          []Leg         `json:"legs"`
	TotalDuration time.Duration `json:"total_duration"`
	TotalMeters   int           `json:"total_meters"`
}

// EstimateRoute returns driving legs between consecutive stops. Fewer than
// two stops yield an empty summary.
func (s *RouteService) EstimateRoute(ctx context.Context, stops []string) (*RouteSummary, error) {
	summary := &RouteSummary{Legs: []Leg{}}
	if len(stops) < 2 {
		return summary, nil
	}

	r := &maps.DirectionsRequest{
		Origin:      stops[0],
		Destination: stops[len(stops)-1],
		Waypoints:   stops[1 : len(stops)-1],
		Mode:        maps.TravelModeDriving,
	}
	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	for i, leg := range routes[0].Legs {
		l := Leg{Duration: leg.Duration, Distance: leg.Distance.HumanReadable, Meters: leg.Distance.Meters}
		if i+1 < len(stops) {
			l.From, l.To = stops[i], stops[i+1]
		}
		summary.Legs = append(summary.Legs, l)
		summary.TotalDuration += leg.Duration
		summary.TotalMeters += leg.Distance.Meters
	}
	return summary, nil
}
