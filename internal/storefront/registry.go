package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type entry struct {
	controller *Controller
	lastSeen   time.Time
}

// Registry keeps one Controller per shopper session and drops sessions that
// have been idle for longer than the configured TTL.
type Registry struct {
	newController func() *Controller
	idleTTL       time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

func NewRegistry(newController func() *Controller, idleTTL time.Duration) *Registry {
	return &Registry{
		newController: newController,
		idleTTL:       idleTTL,
		now:           time.Now,
		sessions:      make(map[uuid.UUID]*entry),
	}
}

// Get returns the controller for id and refreshes its idle timer.
func (r *Registry) Get(id uuid.UUID) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.controller, true
}

func (r *Registry) Create() (uuid.UUID, *Controller, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, nil, err
	}
	c := r.newController()

	r.mu.Lock()
	r.sessions[id] = &entry{controller: c, lastSeen: r.now()}
	r.mu.Unlock()

	log.Debug().Stringer("session_id", id).Msg("storefront: session created")
	return id, c, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes idle sessions and reports how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	dropped := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Info().Int("dropped", n).Int("active", r.Len()).Msg("storefront: idle sessions swept")
			}
		}
	}
}

// SetClock replaces the registry's time source.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}
