// internal/session/session.go
//
// Formstate – in-memory form sessions.
//
// Context
//   A session is one live *form.Form addressed by a random UUID, created when
//   a client opens a form and dropped when it goes idle.  Sessions are held
//   in a sync.Map; a background loop evicts entries idle longer than idleTTL
//   and, under pressure, the least-recently-used ones beyond maxEntries.
//
// Workflow
//   •  Create registers a built Form and issues its submit token.
//   •  Get returns a session and marks it as recently used.
//   •  Run drives the evictor until its context ends.  Evict is one pass,
//      exposed so tests need no ticker.
//
//------------------------------------------------------------------------------

package session

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AdeptTravel/formstate/internal/form"
	"github.com/AdeptTravel/formstate/internal/metrics"
)

// EvictInterval is the default evictor period.
const EvictInterval = time.Minute

// ErrNotFound is returned for an unknown or evicted session.
var ErrNotFound = errors.New("session not found")

// Session is one live form.
type Session struct {
	ID      string
	FormID  string
	Form    *form.Form
	Token   string
	Created time.Time

	lastSeen atomic.Int64 // unix nanos
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// Manager owns every live session.
type Manager struct {
	signer     *Signer
	idleTTL    time.Duration
	maxEntries int
	log        *zap.SugaredLogger

	m     sync.Map // id → *Session
	count atomic.Int64

	now func() time.Time
}

// NewManager returns an empty Manager.  idleTTL ≤ 0 disables idle eviction
// and maxEntries ≤ 0 disables the size bound.
func NewManager(signer *Signer, idleTTL time.Duration, maxEntries int, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.S()
	}
	return &Manager{
		signer:     signer,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		log:        log,
		now:        time.Now,
	}
}

// Create registers f under a fresh session ID.
func (m *Manager) Create(formID string, f *form.Form) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:      uuid.NewString(),
		FormID:  formID,
		Form:    f,
		Created: now,
	}
	tok, err := m.signer.Issue(s.ID, now)
	if err != nil {
		return nil, err
	}
	s.Token = tok
	s.touch(now)

	m.m.Store(s.ID, s)
	metrics.ActiveSessions.Inc()
	if n := m.count.Add(1); m.maxEntries > 0 && int(n) > m.maxEntries {
		m.evictLRU(s.ID)
	}
	return s, nil
}

// Get returns the session for id.  formID must match the session's form.
func (m *Manager) Get(formID, id string) (*Session, error) {
	v, ok := m.m.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	s := v.(*Session)
	if s.FormID != formID {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// VerifyToken reports whether tok was issued for s and is still fresh.
func (m *Manager) VerifyToken(s *Session, tok string) bool {
	return m.signer.Verify(s.ID, tok, m.now())
}

// Delete drops a session.  Unknown IDs are ignored.
func (m *Manager) Delete(id string) {
	if _, loaded := m.m.LoadAndDelete(id); loaded {
		m.count.Add(-1)
		metrics.ActiveSessions.Dec()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int { return int(m.count.Load()) }

// -----------------------------------------------------------------------------
// Eviction
// -----------------------------------------------------------------------------

// Run evicts on every tick until ctx ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = EvictInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Evict()
		}
	}
}

// Evict runs one idle pass followed by one LRU pass and returns how many
// sessions were removed.
func (m *Manager) Evict() int {
	n := 0
	if m.idleTTL > 0 {
		now := m.now().UnixNano()
		m.m.Range(func(key, value any) bool {
			s := value.(*Session)
			idle := time.Duration(now - s.lastSeen.Load())
			if idle > m.idleTTL && m.remove(key.(string)) {
				m.log.Debugw("session evicted", "session", key, "idle", idle.Truncate(time.Second))
				n++
			}
			return true
		})
	}
	return n + m.evictLRU("")
}

// evictLRU trims the map down to maxEntries, oldest first.  Ties on last use
// fall back to creation time.  keep is never evicted.
func (m *Manager) evictLRU(keep string) int {
	excess := m.Len() - m.maxEntries
	if m.maxEntries <= 0 || excess <= 0 {
		return 0
	}

	type kv struct {
		key     string
		at      int64
		created time.Time
	}
	var all []kv
	m.m.Range(func(key, value any) bool {
		if id := key.(string); id != keep {
			s := value.(*Session)
			all = append(all, kv{key: id, at: s.lastSeen.Load(), created: s.Created})
		}
		return true
	})
	slices.SortFunc(all, func(a, b kv) int {
		if c := cmp.Compare(a.at, b.at); c != 0 {
			return c
		}
		return a.created.Compare(b.created)
	})

	n := 0
	for i := 0; i < excess && i < len(all); i++ {
		if m.remove(all[i].key) {
			m.log.Debugw("session evicted (LRU pressure)", "session", all[i].key)
			n++
		}
	}
	return n
}

func (m *Manager) remove(id string) bool {
	if _, loaded := m.m.LoadAndDelete(id); !loaded {
		return false
	}
	m.count.Add(-1)
	metrics.ActiveSessions.Dec()
	metrics.SessionEvictTotal.Inc()
	return true
}
