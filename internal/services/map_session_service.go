package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"evcharge/internal/config"
	"evcharge/internal/domain/entities"
	"evcharge/internal/geo"
	"evcharge/internal/repository"
	"evcharge/pkg/utils"
)

// Span of the viewport the camera zooms to when focusing a station.
const focusSpanDegrees = 0.005

// Business status given to stations built from a focused place.
const focusedPlaceStatus = "OPERATIONAL"

var (
	ErrSessionNotFound = repository.ErrSessionNotFound
	ErrStationNotFound = errors.New("station not found in session")
	ErrNoRoute         = errors.New("session has no route")
	ErrInvalidViewport = errors.New("invalid viewport")
	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidPlace    = errors.New("invalid place")

	errStaleResult = errors.New("stale search result")
)

// MapSessionService owns the server-side state of map screens. Each session
// has its own RefetchController, which turns viewport events into searches
// and writes the results back into the session.
//
// Go Learning Note — Lock Ordering:
// Three locks are involved: s.mu (the controller map), each controller's mu,
// and the repository's mu. A controller never holds its own lock while
// calling the repository, and the service never calls a controller from
// inside a repository Update callback, so no goroutine can wait on a lock
// another goroutine holds while waiting on one of its own.
//
// Sessions that no operation has touched for the idle timeout are closed by
// ExpireIdle, which Run calls on a ticker.
type MapSessionService struct {
	sessions repository.SessionRepository
	search   *StationSearchService
	routes   *RouteService
	cfg      config.RefetchConfig
	expiry   config.SessionConfig
	clock    Clock
	logger   *zap.Logger

	mu          sync.Mutex
	controllers map[string]*sessionEntry
}

type sessionEntry struct {
	controller *RefetchController
	lastActive time.Time
}

func NewMapSessionService(
	sessions repository.SessionRepository,
	search *StationSearchService,
	routes *RouteService,
	cfg config.RefetchConfig,
	expiry config.SessionConfig,
	clock Clock,
	logger *zap.Logger,
) *MapSessionService {
	if clock == nil {
		clock = SystemClock()
	}
	return &MapSessionService{
		sessions:    sessions,
		search:      search,
		routes:      routes,
		cfg:         cfg,
		expiry:      expiry,
		clock:       clock,
		logger:      logger.Named("sessions"),
		controllers: make(map[string]*sessionEntry),
	}
}

// Create opens a session in browsing mode and runs the initial search for
// the starting viewport before returning.
func (s *MapSessionService) Create(ctx context.Context, origin entities.Coordinate, viewport entities.Viewport) (*entities.MapSession, error) {
	if !origin.Valid() {
		return nil, ErrInvalidLocation
	}
	if !viewport.Valid() {
		return nil, ErrInvalidViewport
	}

	session := entities.NewMapSession(utils.NewSessionID(), origin, viewport)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	controller := NewRefetchController(s.cfg, s.clock, s.fetcher(origin), s.deliverer(session.ID), s.logger.With(zap.String("session_id", session.ID)))
	s.mu.Lock()
	s.controllers[session.ID] = &sessionEntry{controller: controller, lastActive: s.clock.Now()}
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", session.ID))

	controller.FetchNow(ctx, viewport)
	return s.sessions.GetByID(ctx, session.ID)
}

// Get returns a snapshot of the session.
func (s *MapSessionService) Get(ctx context.Context, id string) (*entities.MapSession, error) {
	s.touch(id)
	return s.sessions.GetByID(ctx, id)
}

// RefetchState reports what the session's controller is doing.
func (s *MapSessionService) RefetchState(id string) (RefetchState, error) {
	c, err := s.controller(id)
	if err != nil {
		return RefetchIdle, err
	}
	return c.State(), nil
}

// RefetchGeneration returns the generation of the session's latest search.
func (s *MapSessionService) RefetchGeneration(id string) (uint64, error) {
	c, err := s.controller(id)
	if err != nil {
		return 0, err
	}
	return c.Generation(), nil
}

// ViewportChanged records the camera position and lets the controller decide
// whether to search it.
func (s *MapSessionService) ViewportChanged(ctx context.Context, id string, viewport entities.Viewport) (*entities.MapSession, error) {
	if !viewport.Valid() {
		return nil, ErrInvalidViewport
	}
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		sess.Viewport = viewport
		sess.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.OnViewportChanged(viewport)
	return session, nil
}

// Suppress ignores viewport events for the suppression window, ahead of a
// camera move the client is about to make itself.
func (s *MapSessionService) Suppress(ctx context.Context, id string) error {
	c, err := s.controller(id)
	if err != nil {
		return err
	}
	c.SuppressNextChange()
	return nil
}

// SelectStation marks a station from the current snapshot as selected. An
// empty stationID clears the selection.
func (s *MapSessionService) SelectStation(ctx context.Context, id, stationID string) (*entities.MapSession, error) {
	s.touch(id)
	return s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		if stationID != "" {
			if _, ok := sess.FindStation(stationID); !ok {
				return ErrStationNotFound
			}
		}
		sess.SelectedStationID = stationID
		sess.UpdatedAt = time.Now()
		return nil
	})
}

// FocusStation selects a station and moves the camera onto it. The move is
// programmatic, so the viewport change it causes is suppressed.
func (s *MapSessionService) FocusStation(ctx context.Context, id, stationID string) (*entities.MapSession, error) {
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		st, ok := sess.FindStation(stationID)
		if !ok {
			return ErrStationNotFound
		}
		sess.SelectedStationID = st.ID
		for _, rs := range sess.StationsAlongRoute {
			if rs.ID == st.ID {
				sess.FocusedRouteStation = st.ID
				break
			}
		}
		sess.Viewport = focusViewport(st.Coordinate)
		sess.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.SuppressNextChange()
	return session, nil
}

// FocusPlace moves the camera onto a place that may not be a search result,
// such as a saved place. The place joins the station snapshot under its own
// ID, if it is not already there, and becomes the selection.
func (s *MapSessionService) FocusPlace(ctx context.Context, id string, place entities.Place) (*entities.MapSession, error) {
	if place.PlaceID == "" || !place.Coordinate.Valid() {
		return nil, ErrInvalidPlace
	}
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		if !hasStation(sess.Stations, place.PlaceID) {
			sess.Stations = append(sess.Stations, entities.Station{
				ID:             place.PlaceID,
				Name:           place.Name,
				Coordinate:     place.Coordinate,
				Address:        place.Address,
				BusinessStatus: focusedPlaceStatus,
				Types:          []string{},
				DistanceKm:     geo.DistanceKm(sess.Origin, place.Coordinate),
			})
		}
		sess.SelectedStationID = place.PlaceID
		sess.Viewport = focusViewport(place.Coordinate)
		sess.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.SuppressNextChange()
	return session, nil
}

// SetRoute fetches a driving route from start to destination and switches
// the session to routing mode. A nil start routes from the session origin.
// On failure the session is left as it was.
func (s *MapSessionService) SetRoute(ctx context.Context, id string, start *entities.Coordinate, destination entities.Coordinate) (*entities.MapSession, error) {
	if !destination.Valid() || (start != nil && !start.Valid()) {
		return nil, ErrInvalidLocation
	}
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	current, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := current.Origin
	if start != nil {
		from = *start
	}
	route, err := s.routes.Directions(ctx, from, destination)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		if err := sess.TransitionTo(entities.MapModeRouting); err != nil {
			return err
		}
		sess.Route = route
		sess.StationsAlongRoute = nil
		sess.FocusedRouteStation = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.SetMode(session.Mode)
	s.logger.Info("route set", zap.String("session_id", id), zap.Int("points", len(route.Points)))
	return session, nil
}

// StationsAlongRoute keeps the stations of the current snapshot that lie
// within maxDistanceMeters of the route and switches to route-only mode.
func (s *MapSessionService) StationsAlongRoute(ctx context.Context, id string, maxDistanceMeters float64) (*entities.MapSession, error) {
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		if sess.Route == nil {
			return ErrNoRoute
		}
		if sess.Mode != entities.MapModeRouteOnly {
			if err := sess.TransitionTo(entities.MapModeRouteOnly); err != nil {
				return err
			}
		}
		sess.StationsAlongRoute = s.routes.StationsNear(sess.Route.Points, sess.Stations, maxDistanceMeters)
		sess.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.SetMode(session.Mode)
	return session, nil
}

// ClearRoute drops the route, returns to browsing and moves the camera back
// to the initial viewport without triggering a search.
func (s *MapSessionService) ClearRoute(ctx context.Context, id string) (*entities.MapSession, error) {
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, id, func(sess *entities.MapSession) error {
		sess.ClearRoute()
		sess.Viewport = sess.InitialViewport
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.SetMode(entities.MapModeBrowsing)
	c.SuppressNextChange()
	return session, nil
}

// Close stops the session's controller and forgets the session.
func (s *MapSessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	entry, ok := s.controllers[id]
	delete(s.controllers, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	entry.controller.Close()
	s.logger.Info("session closed", zap.String("session_id", id))
	return s.sessions.Delete(ctx, id)
}

// Shutdown stops every controller. Sessions stay readable.
func (s *MapSessionService) Shutdown() {
	s.mu.Lock()
	entries := s.controllers
	s.controllers = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
}

// ExpireIdle closes every session no operation has touched for the idle
// timeout and returns how many it closed.
func (s *MapSessionService) ExpireIdle(ctx context.Context) int {
	if s.expiry.IdleTimeout <= 0 {
		return 0
	}
	now := s.clock.Now()

	expired := make(map[string]*RefetchController)
	s.mu.Lock()
	for id, e := range s.controllers {
		if now.Sub(e.lastActive) >= s.expiry.IdleTimeout {
			expired[id] = e.controller
			delete(s.controllers, id)
		}
	}
	s.mu.Unlock()

	for id, c := range expired {
		c.Close()
		if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.logger.Warn("failed to delete expired session", zap.String("session_id", id), zap.Error(err))
			continue
		}
		s.logger.Info("session expired", zap.String("session_id", id))
	}
	return len(expired)
}

// Run expires idle sessions every sweep interval until done is closed.
func (s *MapSessionService) Run(done <-chan struct{}) {
	if s.expiry.IdleTimeout <= 0 || s.expiry.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.expiry.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.ExpireIdle(context.Background())
		case <-done:
			return
		}
	}
}

// controller returns the session's controller and records the activity.
func (s *MapSessionService) controller(id string) (*RefetchController, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.controllers[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastActive = s.clock.Now()
	return e.controller, nil
}

func (s *MapSessionService) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.controllers[id]; ok {
		e.lastActive = s.clock.Now()
	}
}

func focusViewport(c entities.Coordinate) entities.Viewport {
	return entities.NewViewport(c.Latitude, c.Longitude, focusSpanDegrees, focusSpanDegrees)
}

func hasStation(stations []entities.Station, id string) bool {
	for _, st := range stations {
		if st.ID == id {
			return true
		}
	}
	return false
}

func (s *MapSessionService) fetcher(origin entities.Coordinate) FetchFunc {
	return func(ctx context.Context, v entities.Viewport) []entities.Station {
		return s.search.Search(ctx, SearchRequest{Viewport: v, Origin: origin, Mode: entities.MapModeBrowsing}).Stations
	}
}

// deliverer writes a search result into the session unless the session
// already holds the result of a newer fetch.
func (s *MapSessionService) deliverer(id string) DeliverFunc {
	return func(generation uint64, v entities.Viewport, stations []entities.Station) {
		_, err := s.sessions.Update(context.Background(), id, func(sess *entities.MapSession) error {
			if generation <= sess.StationsGeneration {
				return errStaleResult
			}
			sess.Stations = stations
			sess.StationsGeneration = generation
			sess.UpdatedAt = time.Now()
			return nil
		})
		switch {
		case err == nil:
			s.logger.Debug("stations updated", zap.String("session_id", id), zap.Uint64("generation", generation), zap.Int("stations", len(stations)))
		case errors.Is(err, errStaleResult), errors.Is(err, ErrSessionNotFound):
		default:
			s.logger.Warn("failed to store stations", zap.String("session_id", id), zap.Error(err))
		}
	}
}
