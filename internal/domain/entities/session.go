package entities

import (
	"errors"
	"time"
)

// MapMode is the display mode of a map session.
//
// Go Learning Note — State Machines in Go:
// As with any entity that has a well-defined lifecycle, the allowed mode
// changes live in a transition map. The session's lifecycle is:
//
//	Browsing → Routing → RouteOnly
//	    ↖________↙___________↙      (clearing the route always returns to Browsing)
//
// Only Browsing refetches stations when the viewport moves.
type MapMode string

const (
	MapModeBrowsing  MapMode = "browsing"
	MapModeRouting   MapMode = "routing"
	MapModeRouteOnly MapMode = "route_only"
)

var ErrInvalidModeTransition = errors.New("invalid map mode transition")

var validModeTransitions = map[MapMode][]MapMode{
	MapModeBrowsing:  {MapModeRouting},
	MapModeRouting:   {MapModeRouting, MapModeRouteOnly, MapModeBrowsing},
	MapModeRouteOnly: {MapModeRouting, MapModeBrowsing},
}

// MapSession is the server-side state of one map screen. The stations slice
// is an immutable snapshot: updates replace it, they never mutate it in place.
type MapSession struct {
	ID                  string     `json:"id"`
	Mode                MapMode    `json:"mode"`
	Origin              Coordinate `json:"origin"`
	InitialViewport     Viewport   `json:"initial_viewport"`
	Viewport            Viewport   `json:"viewport"`
	Stations            []Station  `json:"stations"`
	SelectedStationID   string     `json:"selected_station_id,omitempty"`
	Route               *Route     `json:"route,omitempty"`
	StationsAlongRoute  []Station  `json:"stations_along_route,omitempty"`
	FocusedRouteStation string     `json:"focused_route_station_id,omitempty"`
	StationsGeneration  uint64     `json:"stations_generation"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewMapSession creates a session in Browsing mode centred on the initial
// viewport.
func NewMapSession(id string, origin Coordinate, viewport Viewport) *MapSession {
	now := time.Now()
	return &MapSession{
		ID:              id,
		Mode:            MapModeBrowsing,
		Origin:          origin,
		InitialViewport: viewport,
		Viewport:        viewport,
		Stations:        []Station{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CanTransitionTo checks if moving to mode is a valid change.
func (s *MapSession) CanTransitionTo(mode MapMode) bool {
	allowed, exists := validModeTransitions[s.Mode]
	if !exists {
		return false
	}
	for _, m := range allowed {
		if m == mode {
			return true
		}
	}
	return false
}

// TransitionTo moves the session to mode, or returns ErrInvalidModeTransition.
func (s *MapSession) TransitionTo(mode MapMode) error {
	if !s.CanTransitionTo(mode) {
		return ErrInvalidModeTransition
	}
	s.Mode = mode
	s.UpdatedAt = time.Now()
	return nil
}

// FindStation looks a station up by ID in the current snapshot, then in the
// route snapshot.
func (s *MapSession) FindStation(id string) (Station, bool) {
	for _, st := range s.Stations {
		if st.ID == id {
			return st, true
		}
	}
	for _, st := range s.StationsAlongRoute {
		if st.ID == id {
			return st, true
		}
	}
	return Station{}, false
}

// ClearRoute drops every piece of route state and returns to Browsing.
func (s *MapSession) ClearRoute() {
	s.Mode = MapModeBrowsing
	s.Route = nil
	s.StationsAlongRoute = nil
	s.FocusedRouteStation = ""
	s.UpdatedAt = time.Now()
}

// Clone returns a copy that shares no mutable slices with s.
func (s *MapSession) Clone() *MapSession {
	c := *s
	c.Stations = make([]Station, len(s.Stations))
	copy(c.Stations, s.Stations)
	if s.StationsAlongRoute != nil {
		c.StationsAlongRoute = append([]Station(nil), s.StationsAlongRoute...)
	}
	if s.Route != nil {
		r := *s.Route
		r.Points = append([]Coordinate(nil), s.Route.Points...)
		c.Route = &r
	}
	return &c
}
