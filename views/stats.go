package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"library-client/library"
)

// Stats is the statistics screen.
type Stats struct {
	api StatsAPI
	log *zap.Logger

	mu    sync.Mutex
	stats *library.Stats
}

func NewStats(c StatsAPI, log *zap.Logger) *Stats {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stats{api: c, log: log}
}

// Load fetches the counters. A failure clears the snapshot.
func (s *Stats) Load(ctx context.Context) Notification {
	stats, err := s.api.Stats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("fetch stats", zap.Error(err))
		s.stats = nil
		return failure(MsgStatsUnavailable)
	}
	s.stats = stats
	return Notification{}
}

// Snapshot returns the last counters, if any.
func (s *Stats) Snapshot() (library.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return library.Stats{}, false
	}
	return *s.stats, true
}
