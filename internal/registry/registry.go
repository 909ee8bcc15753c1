// Package registry manages short-lived live-introspection connections as a
// generation-stamped slot arena. A conversion registers a connection, holds
// it exclusively for the duration of schema extraction, and releases it; a
// background sweep closes any slot left idle past a bound, as cleanup against
// leaked acquisitions rather than as a concurrency-control mechanism.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is the minimal surface the registry needs from a database connection.
type Conn interface {
	Close() error
}

// Handle is the opaque, generation-stamped key to a slot. A handle must not
// outlive the call that issued it: once its slot is released and swept or
// re-registered, the handle goes stale.
type Handle struct {
	id  string
	gen uint64
}

var (
	ErrStaleHandle = errors.New("registry: stale or unknown handle")
	ErrInUse       = errors.New("registry: connection already acquired")
)

type slot struct {
	conn     Conn
	gen      uint64
	lastUsed time.Time
	inUse    bool
}

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	slots     map[string]*slot
	gen       uint64
	idleBound time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

// New creates a registry whose sweeper evicts connections idle longer than
// idleBound.
func New(idleBound time.Duration) *Registry {
	r := &Registry{
		slots:     make(map[string]*slot),
		idleBound: idleBound,
		stop:      make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Register stores a connection and returns its handle.
func (r *Registry) Register(conn Conn) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	id := uuid.NewString()
	r.slots[id] = &slot{conn: conn, gen: r.gen, lastUsed: time.Now()}
	return Handle{id: id, gen: r.gen}
}

// Acquire takes exclusive use of the connection behind h.
func (r *Registry) Acquire(h Handle) (Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[h.id]
	if !ok || s.gen != h.gen {
		return nil, ErrStaleHandle
	}
	if s.inUse {
		return nil, ErrInUse
	}
	s.inUse = true
	s.lastUsed = time.Now()
	return s.conn, nil
}

// Release returns the connection behind h to the idle pool.
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[h.id]
	if !ok || s.gen != h.gen {
		return ErrStaleHandle
	}
	s.inUse = false
	s.lastUsed = time.Now()
	return nil
}

// Remove closes and drops the connection behind h.
func (r *Registry) Remove(h Handle) error {
	r.mu.Lock()
	s, ok := r.slots[h.id]
	if !ok || s.gen != h.gen {
		r.mu.Unlock()
		return ErrStaleHandle
	}
	delete(r.slots, h.id)
	r.mu.Unlock()

	return s.conn.Close()
}

// Len reports the number of live slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Close stops the sweeper and closes every remaining connection.
func (r *Registry) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for id, s := range r.slots {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.slots, id)
	}
	return firstErr
}

func (r *Registry) sweep() {
	interval := r.idleBound / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *Registry) evictIdle(now time.Time) {
	r.mu.Lock()
	var expired []Conn
	for id, s := range r.slots {
		if !s.inUse && now.Sub(s.lastUsed) > r.idleBound {
			expired = append(expired, s.conn)
			delete(r.slots, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		_ = c.Close()
	}
}
