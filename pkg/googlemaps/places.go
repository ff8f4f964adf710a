package googlemaps

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"evcharge/internal/domain/entities"
)

const (
	autocompletePath = "/place/autocomplete/json"
	detailsPath      = "/place/details/json"

	autocompleteBiasRadius = "20000"
)

// Autocomplete returns geocode suggestions for input, optionally biased
// towards near. Blank input returns no suggestions without a request.
func (c *Client) Autocomplete(ctx context.Context, input string, near *entities.Coordinate) ([]entities.Prediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return []entities.Prediction{}, nil
	}

	params := url.Values{}
	params.Set("input", input)
	params.Set("language", "en")
	params.Set("types", "geocode")
	if near != nil {
		params.Set("location", formatLatLng(*near))
		params.Set("radius", autocompleteBiasRadius)
	}

	var resp autocompleteResponse
	if err := c.getJSON(ctx, autocompletePath, params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []entities.Prediction{}, nil
	default:
		c.logger.Warn("autocomplete rejected", zap.String("status", resp.Status), zap.String("message", resp.ErrorMessage))
		return nil, &StatusError{Endpoint: "autocomplete", Status: resp.Status, Message: resp.ErrorMessage}
	}

	predictions := make([]entities.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if p.PlaceID == "" {
			continue
		}
		pred := entities.Prediction{
			PlaceID:     p.PlaceID,
			Description: p.Description,
			MainText:    p.Description,
		}
		if p.StructuredFormatting != nil {
			if p.StructuredFormatting.MainText != "" {
				pred.MainText = p.StructuredFormatting.MainText
			}
			pred.SecondaryText = p.StructuredFormatting.SecondaryText
		}
		predictions = append(predictions, pred)
	}
	return predictions, nil
}

// PlaceDetails resolves a place id to its name, address and coordinate.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (*entities.Place, error) {
	if placeID == "" {
		return nil, ErrPlaceNotFound
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "formatted_address,name,geometry")

	var resp placeDetailsResponse
	if err := c.getJSON(ctx, detailsPath, params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "NOT_FOUND", "ZERO_RESULTS", "INVALID_REQUEST":
		return nil, ErrPlaceNotFound
	default:
		return nil, &StatusError{Endpoint: "details", Status: resp.Status, Message: resp.ErrorMessage}
	}

	if resp.Result == nil {
		return nil, ErrPlaceNotFound
	}
	lat, lng, ok := resp.Result.location()
	if !ok {
		return nil, ErrPlaceNotFound
	}

	return &entities.Place{
		PlaceID:    placeID,
		Name:       resp.Result.Name,
		Address:    resp.Result.FormattedAddress,
		Coordinate: entities.NewCoordinate(lat, lng),
	}, nil
}
