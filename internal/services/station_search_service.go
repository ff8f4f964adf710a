package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bluele/gcache"
	"go.uber.org/zap"

	"evcharge/internal/config"
	"evcharge/internal/domain/entities"
	"evcharge/internal/geo"
)

// StationProvider looks up charging stations around a single point.
// *googlemaps.Client satisfies it.
type StationProvider interface {
	HasAPIKey() bool
	NearbyStations(ctx context.Context, location entities.Coordinate, radiusMeters int, keyword string) ([]entities.Station, error)
}

// SearchRequest asks for the stations visible in Viewport, with distances
// measured from Origin. An empty Mode is treated as browsing.
type SearchRequest struct {
	Viewport entities.Viewport
	Origin   entities.Coordinate
	Mode     entities.MapMode
}

// SearchResult is the outcome of a search. Stations is never nil.
type SearchResult struct {
	Stations  []entities.Station `json:"stations"`
	FromCache bool               `json:"from_cache"`
	Skipped   bool               `json:"skipped"`
	Partial   bool               `json:"partial"`
}

// StationSearchService turns a viewport into a deduplicated, distance-sorted
// station list by querying the provider on a grid over the viewport.
//
// Go Learning Note — Fan-Out / Fan-In:
// Each grid point gets its own goroutine and writes into its own slot of a
// pre-sized slice, so the goroutines never share a write target and need no
// mutex. sync.WaitGroup is the fan-in: Wait returns once every goroutine has
// called Done. The merge then runs on the calling goroutine over a fixed slot
// order, and the final sort makes the output independent of which request
// finished first.
type StationSearchService struct {
	provider StationProvider
	cache    gcache.Cache
	cfg      config.SearchConfig
	logger   *zap.Logger
}

// NewStationSearchService creates the orchestrator with an LRU viewport cache
// bounded by cfg.CacheCapacity.
func NewStationSearchService(provider StationProvider, cfg config.SearchConfig, logger *zap.Logger) *StationSearchService {
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	return &StationSearchService{
		provider: provider,
		cache:    gcache.New(capacity).LRU().Build(),
		cfg:      cfg,
		logger:   logger.Named("stations"),
	}
}

// Search never returns an error: provider failures shrink the result instead.
func (s *StationSearchService) Search(ctx context.Context, req SearchRequest) SearchResult {
	if req.Mode != "" && req.Mode != entities.MapModeBrowsing {
		return SearchResult{Stations: []entities.Station{}, Skipped: true}
	}
	if !s.provider.HasAPIKey() {
		s.logger.Debug("no maps API key configured, skipping search")
		return SearchResult{Stations: []entities.Station{}}
	}

	key := geo.ViewportCacheKey(req.Viewport)
	if cached, err := s.cache.Get(key); err == nil {
		stations := restamp(cached.([]entities.Station), req.Origin)
		s.logger.Debug("viewport cache hit", zap.String("key", key), zap.Int("stations", len(stations)))
		return SearchResult{Stations: stations, FromCache: true}
	}

	points := geo.GridPoints(req.Viewport, s.cfg.GridRows, s.cfg.GridCols)
	batches := make([][]entities.Station, len(points))
	errs := make([]error, len(points))

	var wg sync.WaitGroup
	for i, p := range points {
		wg.Add(1)
		go func(i int, p entities.Coordinate) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("provider panic: %v", r)
				}
			}()
			batches[i], errs[i] = s.provider.NearbyStations(ctx, p, s.cfg.RadiusMeters, s.cfg.Keyword)
		}(i, p)
	}
	wg.Wait()

	if ctx.Err() != nil {
		s.logger.Debug("search cancelled", zap.String("key", key), zap.Error(ctx.Err()))
		return SearchResult{Stations: []entities.Station{}}
	}

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			batches[i] = nil
			s.logger.Warn("grid point search failed",
				zap.Float64("lat", points[i].Latitude),
				zap.Float64("lng", points[i].Longitude),
				zap.Error(err))
		}
	}

	stations := mergeStations(req.Origin, batches)

	if failed == 0 {
		if err := s.cache.Set(key, stations); err != nil {
			s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Info("viewport searched",
		zap.String("key", key),
		zap.Int("grid_points", len(points)),
		zap.Int("failed", failed),
		zap.Int("stations", len(stations)))

	// The cached slice is shared, so callers get their own copy.
	out := make([]entities.Station, len(stations))
	copy(out, stations)
	return SearchResult{Stations: out, Partial: failed > 0}
}

// mergeStations keeps one entry per station ID, with the distance from origin.
func mergeStations(origin entities.Coordinate, batches [][]entities.Station) []entities.Station {
	byID := make(map[string]entities.Station)
	for _, batch := range batches {
		for _, st := range batch {
			if st.ID == "" {
				continue
			}
			st.DistanceKm = geo.DistanceKm(origin, st.Coordinate)
			if existing, ok := byID[st.ID]; ok && existing.DistanceKm <= st.DistanceKm {
				continue
			}
			byID[st.ID] = st
		}
	}

	merged := make([]entities.Station, 0, len(byID))
	for _, st := range byID {
		merged = append(merged, st)
	}
	sortByDistance(merged)
	return merged
}

// restamp copies cached stations with distances measured from origin.
func restamp(cached []entities.Station, origin entities.Coordinate) []entities.Station {
	out := make([]entities.Station, len(cached))
	for i, st := range cached {
		st.DistanceKm = geo.DistanceKm(origin, st.Coordinate)
		out[i] = st
	}
	sortByDistance(out)
	return out
}

func sortByDistance(stations []entities.Station) {
	sort.Slice(stations, func(i, j int) bool {
		if stations[i].DistanceKm != stations[j].DistanceKm {
			return stations[i].DistanceKm < stations[j].DistanceKm
		}
		return stations[i].ID < stations[j].ID
	})
}
