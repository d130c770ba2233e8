package search

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor prunes expired cache entries on a schedule so the cache file does
// not grow without bound between restarts.
type Janitor struct {
	cron *cron.Cron
}

// StartJanitor schedules a cache prune every interval. interval <= 0 uses
// a quarter of the cache TTL, floored at one minute.
func StartJanitor(svc *Service, interval time.Duration, logger zerolog.Logger) (*Janitor, error) {
	if interval <= 0 {
		interval = svc.cfg.CacheTTL / 4
		if interval < time.Minute {
			interval = time.Minute
		}
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if n := svc.PruneCache(); n > 0 {
			logger.Debug().Int("removed", n).Msg("search cache pruned")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cache prune: %w", err)
	}
	c.Start()
	return &Janitor{cron: c}, nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
