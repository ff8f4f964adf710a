package googlemaps

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"evcharge/internal/domain/entities"
	"evcharge/internal/geo"
)

const nearbySearchPath = "/place/nearbysearch/json"

// Types that mark an administrative area rather than a place you can drive to.
var excludedTypes = map[string]bool{
	"locality":                    true,
	"sublocality":                 true,
	"sublocality_level_1":         true,
	"sublocality_level_2":         true,
	"administrative_area_level_1": true,
	"administrative_area_level_2": true,
	"political":                   true,
}

var chargingName = regexp.MustCompile(`(?i)ev|charge|charging`)

// isChargingCandidate keeps results typed as EV chargers or gas stations, or
// whose name looks like a charger.
func isChargingCandidate(p *placeResult) bool {
	for _, t := range p.Types {
		if excludedTypes[t] {
			return false
		}
	}
	for _, t := range p.Types {
		if t == "electric_vehicle_charging_station" || t == "gas_station" {
			return true
		}
	}
	return chargingName.MatchString(p.Name)
}

// NearbyStations runs a keyword nearby search around location and returns the
// charging candidates, following next_page_token up to the configured page
// limit. DistanceKm on each station is measured from location.
//
// A failure on the first page is returned as an error. A failure on a later
// page is logged and the stations collected so far are returned.
func (c *Client) NearbyStations(ctx context.Context, location entities.Coordinate, radiusMeters int, keyword string) ([]entities.Station, error) {
	params := url.Values{}
	params.Set("location", formatLatLng(location))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("keyword", keyword)

	var stations []entities.Station
	for page := 0; page < c.maxPages; page++ {
		var resp nearbySearchResponse
		if err := c.getJSON(ctx, nearbySearchPath, params, &resp); err != nil {
			if page == 0 {
				return nil, err
			}
			c.logger.Warn("nearby search page failed", zap.Int("page", page), zap.Error(err))
			break
		}

		switch resp.Status {
		case "OK":
		case "ZERO_RESULTS":
			return stations, nil
		default:
			err := &StatusError{Endpoint: "nearbysearch", Status: resp.Status, Message: resp.ErrorMessage}
			if page == 0 {
				return nil, err
			}
			c.logger.Warn("nearby search page rejected", zap.Int("page", page), zap.Error(err))
			return stations, nil
		}

		for i := range resp.Results {
			if st, ok := toStation(&resp.Results[i], location); ok {
				stations = append(stations, st)
			}
		}

		if resp.NextPageToken == "" || page+1 >= c.maxPages {
			break
		}
		// The token only becomes valid a short while after it is issued.
		if err := wait(ctx, c.pageDelay); err != nil {
			return stations, nil
		}
		params = url.Values{}
		params.Set("pagetoken", resp.NextPageToken)
	}

	return stations, nil
}

func toStation(p *placeResult, origin entities.Coordinate) (entities.Station, bool) {
	if p.PlaceID == "" || !isChargingCandidate(p) {
		return entities.Station{}, false
	}
	lat, lng, ok := p.location()
	if !ok {
		return entities.Station{}, false
	}
	coord := entities.NewCoordinate(lat, lng)
	address := p.Vicinity
	if address == "" {
		address = p.FormattedAddress
	}
	return entities.Station{
		ID:               p.PlaceID,
		Name:             p.Name,
		Coordinate:       coord,
		Address:          address,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		BusinessStatus:   p.BusinessStatus,
		Types:            p.Types,
		DistanceKm:       geo.DistanceKm(origin, coord),
	}, true
}

func formatLatLng(c entities.Coordinate) string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		strconv.FormatFloat(c.Longitude, 'f', -1, 64))
}
