package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/internal/api/handlers"
	"evcharge/internal/api/middleware"
	"evcharge/internal/config"
	"evcharge/internal/domain/entities"
	"evcharge/internal/repository/memory"
	"evcharge/internal/services"
	"evcharge/pkg/googlemaps"
)

const testSecret = "integration-secret"

// Decodes to (38.5,-120.2) (40.7,-120.95) (43.252,-126.453).
const testPolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

type testServer struct {
	engine      *gin.Engine
	nearbyCalls *int32
}

// fakeMaps answers the four provider endpoints with fixed payloads.
func fakeMaps(t *testing.T, nearbyCalls *int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body interface{}
		switch r.URL.Path {
		case "/place/nearbysearch/json":
			atomic.AddInt32(nearbyCalls, 1)
			body = map[string]interface{}{
				"status": "OK",
				"results": []interface{}{
					map[string]interface{}{
						"place_id": "st-1",
						"name":     "Downtown Charge Hub",
						"vicinity": "1 Main St",
						"geometry": map[string]interface{}{"location": map[string]float64{"lat": 38.5005, "lng": -120.2}},
						"types":    []string{"electric_vehicle_charging_station"},
					},
					map[string]interface{}{
						"place_id": "city-1",
						"name":     "Evergreen",
						"geometry": map[string]interface{}{"location": map[string]float64{"lat": 38.6, "lng": -120.3}},
						"types":    []string{"locality", "political"},
					},
				},
			}
		case "/directions/json":
			body = map[string]interface{}{
				"status": "OK",
				"routes": []interface{}{
					map[string]interface{}{
						"overview_polyline": map[string]string{"points": testPolyline},
						"legs": []interface{}{
							map[string]interface{}{
								"distance": map[string]interface{}{"text": "700 km", "value": 700000},
								"duration": map[string]interface{}{"text": "8 hours", "value": 28800},
							},
						},
					},
				},
			}
		case "/place/autocomplete/json":
			body = map[string]interface{}{
				"status": "OK",
				"predictions": []interface{}{
					map[string]interface{}{
						"place_id":    "dest-1",
						"description": "Lake Tahoe, CA, USA",
						"structured_formatting": map[string]string{
							"main_text":      "Lake Tahoe",
							"secondary_text": "CA, USA",
						},
					},
				},
			}
		case "/place/details/json":
			if r.URL.Query().Get("place_id") != "dest-1" {
				body = map[string]string{"status": "NOT_FOUND"}
				break
			}
			body = map[string]interface{}{
				"status": "OK",
				"result": map[string]interface{}{
					"place_id":          "dest-1",
					"name":              "Lake Tahoe",
					"formatted_address": "Lake Tahoe, CA, USA",
					"geometry":          map[string]interface{}{"location": map[string]float64{"lat": 39.0968, "lng": -120.0324}},
				},
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func setupTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var nearbyCalls int32
	maps := fakeMaps(t, &nearbyCalls)

	cfg := config.NewDefaultConfig()
	logger := zap.NewNop()

	client := googlemaps.NewClientWithHTTP(googlemaps.Options{
		APIKey:    "test-key",
		BaseURL:   maps.URL,
		PageDelay: time.Millisecond,
		MaxPages:  1,
	}, maps.Client(), logger)

	searchService := services.NewStationSearchService(client, cfg.Search, logger)
	routeService := services.NewRouteService(client, cfg.Corridor, logger)
	placeService := services.NewPlaceSearchService(client, logger)
	savedPlaceService := services.NewSavedPlaceService(memory.NewSavedPlaceRepository(), logger)
	sessionService := services.NewMapSessionService(memory.NewSessionRepository(), searchService, routeService, cfg.Refetch, cfg.Sessions, nil, logger)
	t.Cleanup(sessionService.Shutdown)

	router := NewRouter(
		handlers.NewStationHandler(searchService, routeService),
		handlers.NewPlaceHandler(placeService, routeService),
		handlers.NewSessionHandler(sessionService),
		handlers.NewSavedPlaceHandler(savedPlaceService),
		limiter,
		testSecret,
	)
	engine := gin.New()
	router.Setup(engine)

	return &testServer{engine: engine, nearbyCalls: &nearbyCalls}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

type sessionBody struct {
	entities.MapSession
	RefetchState      string `json:"refetch_state"`
	RefetchGeneration uint64 `json:"refetch_generation"`
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var out sessionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const viewportJSON = `{"center":{"lat":38.5,"lng":-120.2},"latitude_delta":0.05,"longitude_delta":0.05}`

func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("GET", "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStationSearchEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("POST", "/api/v1/stations/search", `{"viewport":`+viewportJSON+`}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result services.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Stations, 1, "the locality result is filtered and grid duplicates merged")
	assert.Equal(t, "st-1", result.Stations[0].ID)
	assert.False(t, result.FromCache)
	assert.Equal(t, int32(9), atomic.LoadInt32(s.nearbyCalls))

	w = s.do("POST", "/api/v1/stations/search", `{"viewport":`+viewportJSON+`,"origin":{"lat":38.51,"lng":-120.2}}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.FromCache)
	assert.InDelta(t, 1.06, result.Stations[0].DistanceKm, 0.01, "cached distances follow the new origin")
	assert.Equal(t, int32(9), atomic.LoadInt32(s.nearbyCalls))

	w = s.do("POST", "/api/v1/stations/search", `{"viewport":`+viewportJSON+`,"mode":"routing"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Stations)
}

func TestStationSearchEndpoint_Validation(t *testing.T) {
	s := setupTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing viewport", body: `{}`},
		{name: "zero span", body: `{"viewport":{"center":{"lat":1,"lng":2},"latitude_delta":0,"longitude_delta":0.1}}`},
		{name: "latitude out of range", body: `{"viewport":{"center":{"lat":91,"lng":2},"latitude_delta":0.1,"longitude_delta":0.1}}`},
		{name: "unknown mode", body: `{"viewport":` + viewportJSON + `,"mode":"driving"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("POST", "/api/v1/stations/search", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestStationsNearRouteEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	body := `{
		"polyline": "` + testPolyline + `",
		"max_distance_meters": 300,
		"stations": [
			{"id":"near","name":"Near","location":{"lat":38.5005,"lng":-120.2}},
			{"id":"far","name":"Far","location":{"lat":38.0,"lng":-119.0}}
		]
	}`
	w := s.do("POST", "/api/v1/stations/near-route", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Stations []entities.Station `json:"stations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Stations, 1)
	assert.Equal(t, "near", resp.Stations[0].ID)
}

func TestPolylineDecodeEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("POST", "/api/v1/polyline/decode", `{"encoded":"`+testPolyline+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Points []entities.Coordinate `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 3)
	assert.InDelta(t, 43.252, resp.Points[2].Latitude, 1e-9)
}

func TestPlacesAndDirectionsEndpoints(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("GET", "/api/v1/places/autocomplete?input=tahoe&near=38.5,-120.2", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var predictions struct {
		Predictions []entities.Prediction `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &predictions))
	require.Len(t, predictions.Predictions, 1)
	assert.Equal(t, "Lake Tahoe", predictions.Predictions[0].MainText)

	w = s.do("GET", "/api/v1/places/autocomplete?input=tahoe&near=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("GET", "/api/v1/places/dest-1", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var place entities.Place
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &place))
	assert.Equal(t, "Lake Tahoe, CA, USA", place.Address)

	w = s.do("GET", "/api/v1/places/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("GET", "/api/v1/directions?origin=38.5,-120.2&destination=43.252,-126.453", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var route entities.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &route))
	assert.Len(t, route.Points, 3)
	assert.Equal(t, "8 hours", route.DurationText)

	w = s.do("GET", "/api/v1/directions?origin=38.5", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("POST", "/api/v1/sessions", `{"origin":{"lat":38.5,"lng":-120.2},"viewport":`+viewportJSON+`}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeSession(t, w)
	assert.Equal(t, entities.MapModeBrowsing, created.Mode)
	require.Len(t, created.Stations, 1)
	assert.Equal(t, "idle", created.RefetchState)
	assert.Equal(t, uint64(1), created.RefetchGeneration)
	base := "/api/v1/sessions/" + created.ID

	w = s.do("POST", base+"/select", `{"station_id":"st-1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "st-1", decodeSession(t, w).SelectedStationID)

	w = s.do("POST", base+"/select", `{"station_id":"missing"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("POST", base+"/route/stations", "", "")
	assert.Equal(t, http.StatusConflict, w.Code, "no route yet")

	w = s.do("POST", base+"/route", `{"destination":{"lat":43.252,"lng":-126.453}}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	routed := decodeSession(t, w)
	assert.Equal(t, entities.MapModeRouting, routed.Mode)
	require.NotNil(t, routed.Route)
	assert.Len(t, routed.Route.Points, 3)

	w = s.do("POST", base+"/route/stations", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	along := decodeSession(t, w)
	assert.Equal(t, entities.MapModeRouteOnly, along.Mode)
	require.Len(t, along.StationsAlongRoute, 1)
	assert.Equal(t, "st-1", along.StationsAlongRoute[0].ID)

	w = s.do("POST", base+"/focus", `{"station_id":"st-1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	focused := decodeSession(t, w)
	assert.Equal(t, "st-1", focused.FocusedRouteStation)
	assert.Equal(t, "suppressed", focused.RefetchState)

	w = s.do("DELETE", base+"/route", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cleared := decodeSession(t, w)
	assert.Equal(t, entities.MapModeBrowsing, cleared.Mode)
	assert.Nil(t, cleared.Route)
	assert.Equal(t, created.InitialViewport, cleared.Viewport)

	w = s.do("DELETE", base, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do("GET", base, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionViewportEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("POST", "/api/v1/sessions", `{"origin":{"lat":38.5,"lng":-120.2},"viewport":`+viewportJSON+`}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	base := "/api/v1/sessions/" + decodeSession(t, w).ID

	w = s.do("POST", base+"/viewport", `{"center":{"lat":38.6,"lng":-120.2},"latitude_delta":0.05,"longitude_delta":0.05}`, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	moved := decodeSession(t, w)
	assert.InDelta(t, 38.6, moved.Viewport.Center.Latitude, 1e-9)
	assert.Equal(t, "pending", moved.RefetchState)

	w = s.do("POST", base+"/suppress", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"refetch_state":"suppressed"}`, w.Body.String())

	w = s.do("POST", base+"/viewport", `{"center":{"lat":38.6,"lng":-120.2}}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/v1/sessions/ses_missing/viewport", viewportJSON, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionFocusPlaceEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("POST", "/api/v1/sessions", `{"origin":{"lat":38.5,"lng":-120.2},"viewport":`+viewportJSON+`}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	base := "/api/v1/sessions/" + decodeSession(t, w).ID

	body := `{"place_id":"dest-1","name":"Lake Tahoe","address":"Lake Tahoe, CA, USA","location":{"lat":39.0968,"lng":-120.0324}}`
	w = s.do("POST", base+"/focus-place", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	focused := decodeSession(t, w)
	require.Len(t, focused.Stations, 2)
	assert.Equal(t, "dest-1", focused.Stations[1].ID)
	assert.Equal(t, "OPERATIONAL", focused.Stations[1].BusinessStatus)
	assert.Equal(t, "dest-1", focused.SelectedStationID)
	assert.Equal(t, 0.005, focused.Viewport.LatitudeDelta)
	assert.Equal(t, "suppressed", focused.RefetchState)

	w = s.do("POST", base+"/focus-place", `{"place_id":"dest-1","location":{"lat":39.0968,"lng":-120.0324}}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")
}

func TestSessionRouteFromStart(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do("POST", "/api/v1/sessions", `{"origin":{"lat":38.5,"lng":-120.2},"viewport":`+viewportJSON+`}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	base := "/api/v1/sessions/" + decodeSession(t, w).ID

	w = s.do("POST", base+"/route", `{"start":{"lat":40.7,"lng":-120.95},"destination":{"lat":43.252,"lng":-126.453}}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entities.MapModeRouting, decodeSession(t, w).Mode)

	w = s.do("POST", base+"/route", `{"start":{"lat":140,"lng":0},"destination":{"lat":43.252,"lng":-126.453}}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSavedPlacesEndpoints(t *testing.T) {
	s := setupTestServer(t, nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := s.do("GET", "/api/v1/saved-places", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := `{"name":"Home","address":"1 Main St","location":{"lat":38.5,"lng":-120.2}}`
	w = s.do("POST", "/api/v1/saved-places", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved entities.SavedPlace
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, entities.PlaceTypeHome, saved.Type)

	w = s.do("POST", "/api/v1/saved-places", body, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do("GET", "/api/v1/saved-places", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Places []entities.SavedPlace `json:"places"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Places, 1)

	w = s.do("DELETE", "/api/v1/saved-places/"+saved.ID, "", token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do("DELETE", "/api/v1/saved-places/"+saved.ID, "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchRoutesAreRateLimited(t *testing.T) {
	s := setupTestServer(t, middleware.NewRateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		w := s.do("GET", "/api/v1/places/autocomplete?input=tahoe", "", "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := s.do("GET", "/api/v1/places/autocomplete?input=tahoe", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do("POST", "/api/v1/polyline/decode", `{"encoded":""}`, "")
	assert.Equal(t, http.StatusOK, w.Code, "geometry routes are not limited")
}

func TestSessionRoutesAreRateLimited(t *testing.T) {
	s := setupTestServer(t, middleware.NewRateLimiter(1, time.Minute))

	create := `{"origin":{"lat":38.5,"lng":-120.2},"viewport":` + viewportJSON + `}`
	w := s.do("POST", "/api/v1/sessions", create, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	base := "/api/v1/sessions/" + decodeSession(t, w).ID

	w = s.do("POST", "/api/v1/sessions", create, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do("POST", base+"/viewport", viewportJSON, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do("POST", base+"/route", `{"destination":{"lat":43.252,"lng":-126.453}}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do("GET", base, "", "")
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}
