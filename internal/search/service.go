package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
)

// ComponentSearchEngine is the lifecycle component name for the web client.
const ComponentSearchEngine = "search_engine"

// estSearchEngineMB is the advisory resident cost of the HTTP client.
const estSearchEngineMB = 10

// Response is the outcome of one search request.
type Response struct {
	Query     string        `json:"query"`
	Results   []WebResult   `json:"results"`
	FromCache bool          `json:"from_cache"`
	CacheAge  time.Duration `json:"cache_age,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Options configures the search service.
type Options struct {
	Config    config.SearchConfig
	CachePath string
	Lifecycle *lifecycle.Manager
	Logger    zerolog.Logger
	// Engine overrides the DuckDuckGo client; used by tests.
	Engine func() (Engine, error)
}

// Service answers web queries through a lazily loaded engine component with
// a file-backed cache in front of it.
type Service struct {
	cfg    config.SearchConfig
	lc     *lifecycle.Manager
	cache  *Cache
	logger zerolog.Logger
}

// New builds the service and registers the search engine component. The
// engine is not constructed until the first live (uncached) search.
func New(opts Options) *Service {
	s := &Service{
		cfg:    opts.Config,
		lc:     opts.Lifecycle,
		cache:  NewCache(opts.CachePath, opts.Config.CacheTTL),
		logger: opts.Logger,
	}
	build := opts.Engine
	if build == nil {
		cfg := opts.Config
		build = func() (Engine, error) {
			return newDuckDuckGo(cfg.Timeout, cfg.MinInterval), nil
		}
	}
	s.lc.Register(ComponentSearchEngine, lifecycle.Component{
		EstMemoryMB: estSearchEngineMB,
		Loader: func() (any, error) {
			return build()
		},
	})
	return s
}

// Search runs a query, serving from cache when useCache is set and a fresh
// entry exists. maxResults <= 0 falls back to the configured default.
func (s *Service) Search(ctx context.Context, query string, maxResults int, useCache bool) (Response, error) {
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}
	start := time.Now()
	key := cacheKey(query, maxResults)

	if useCache {
		if results, age, ok := s.cache.Get(key); ok {
			s.logger.Debug().Str("query", query).Dur("age", age).Msg("search cache hit")
			return Response{
				Query:     query,
				Results:   results,
				FromCache: true,
				CacheAge:  age,
				Duration:  time.Since(start),
			}, nil
		}
	}

	eng, err := lifecycle.As[Engine](s.lc.Acquire(ctx, ComponentSearchEngine))
	if err != nil {
		return Response{Query: query}, err
	}
	results, err := eng.Search(ctx, query, maxResults)

	if serr := s.lc.ScheduleEviction(ComponentSearchEngine, s.cfg.IdleTimeout); serr != nil {
		s.logger.Warn().Err(serr).Msg("schedule eviction failed")
	}
	if err != nil {
		return Response{Query: query}, fmt.Errorf("search %q: %w", query, err)
	}

	s.cache.Put(key, query, results)
	return Response{
		Query:    query,
		Results:  results,
		Duration: time.Since(start),
	}, nil
}

// SearchNews is a news-slanted query: the topic plus today's date keeps
// results current and avoids sharing cache entries across days.
func (s *Service) SearchNews(ctx context.Context, topic string, maxResults int) (Response, error) {
	query := fmt.Sprintf("%s news %s", topic, time.Now().Format("2006-01-02"))
	return s.Search(ctx, query, maxResults, true)
}

// SearchWikipedia narrows the query to Wikipedia.
func (s *Service) SearchWikipedia(ctx context.Context, topic string, maxResults int) (Response, error) {
	return s.Search(ctx, "site:wikipedia.org "+topic, maxResults, true)
}

// CacheStats reports the current cache shape.
func (s *Service) CacheStats() CacheStats { return s.cache.Stats() }

// ClearCache drops every cached result.
func (s *Service) ClearCache() { s.cache.Clear() }

// PruneCache removes expired entries; returns how many were dropped.
func (s *Service) PruneCache() int { return s.cache.Prune() }

func cacheKey(query string, maxResults int) string {
	return fmt.Sprintf("%s_%d", query, maxResults)
}
