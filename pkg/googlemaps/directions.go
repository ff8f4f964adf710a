package googlemaps

import (
	"context"
	"net/url"

	"evcharge/internal/domain/entities"
	"evcharge/internal/geo"
)

const directionsPath = "/directions/json"

// Directions fetches a driving route and decodes its overview polyline.
// It returns entities.ErrRouteUnavailable when the provider has no route
// between the two points.
func (c *Client) Directions(ctx context.Context, origin, destination entities.Coordinate) (*entities.Route, error) {
	params := url.Values{}
	params.Set("origin", formatLatLng(origin))
	params.Set("destination", formatLatLng(destination))
	params.Set("mode", "driving")

	var resp directionsResponse
	if err := c.getJSON(ctx, directionsPath, params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, entities.ErrRouteUnavailable
	default:
		return nil, &StatusError{Endpoint: "directions", Status: resp.Status, Message: resp.ErrorMessage}
	}

	if len(resp.Routes) == 0 {
		return nil, entities.ErrRouteUnavailable
	}
	r := resp.Routes[0]
	points := geo.DecodePolyline(r.OverviewPolyline.Points)
	if len(points) < 2 {
		return nil, entities.ErrRouteUnavailable
	}

	route := &entities.Route{Points: points}
	if len(r.Legs) > 0 {
		route.DistanceText = r.Legs[0].Distance.Text
		route.DurationText = r.Legs[0].Duration.Text
	}
	return route, nil
}
