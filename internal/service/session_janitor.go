package service

import (
	"context"
	"log"
	"time"
)

// SessionJanitor periodically discards idle sessions.
type SessionJanitor struct {
	sessions SessionService
	interval time.Duration
}

// NewSessionJanitor creates a SessionJanitor sweeping every interval.
func NewSessionJanitor(sessions SessionService, interval time.Duration) *SessionJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionJanitor{sessions: sessions, interval: interval}
}

// Start runs the sweep loop until ctx is canceled.
func (j *SessionJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Printf("sessionJanitor: started (interval=%s, idleTTL=%s)", j.interval, j.sessions.IdleTTL())

	for {
		select {
		case <-ctx.Done():
			log.Printf("sessionJanitor: shutdown complete")
			return
		case now := <-ticker.C:
			if removed := j.sessions.Sweep(now); removed > 0 {
				log.Printf("sessionJanitor: discarded %d idle session(s), %d active", removed, j.sessions.Count())
			}
		}
	}
}
