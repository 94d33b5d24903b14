// internal/session/session_test.go
//
// Token round trips, session lookup, and both eviction passes.  A fake clock
// drives idle time so no test sleeps.

package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AdeptTravel/formstate/internal/form"
	"github.com/AdeptTravel/formstate/internal/metrics"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, idle time.Duration, max int) (*Manager, *clock) {
	t.Helper()
	signer, err := NewSigner(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(signer, idle, max, nil)
	m.now = c.now
	return m, c
}

func newForm(t *testing.T) *form.Form {
	t.Helper()
	f, err := form.New(&form.Config{InitialValues: form.Values{"q": ""}})
	if err != nil {
		t.Fatalf("form.New: %v", err)
	}
	return f
}

func TestSignerRoundTrip(t *testing.T) {
	s, _ := NewSigner(strings.Repeat("x", 32))
	now := time.Now()

	tok, err := s.Issue("sid-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !s.Verify("sid-1", tok, now) {
		t.Fatalf("fresh token rejected")
	}
	if s.Verify("sid-2", tok, now) {
		t.Fatalf("token accepted for another session")
	}
	if s.Verify("sid-1", tok, now.Add(MaxAge+time.Second)) {
		t.Fatalf("expired token accepted")
	}
	if s.Verify("sid-1", tok, now.Add(-2*clockSkew)) {
		t.Fatalf("future token accepted")
	}
	if s.Verify("sid-1", "garbage", now) || s.Verify("sid-1", "", now) {
		t.Fatalf("malformed token accepted")
	}

	other, _ := NewSigner(strings.Repeat("y", 32))
	if other.Verify("sid-1", tok, now) {
		t.Fatalf("token accepted under a different key")
	}

	if _, err := s.Issue("", now); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestEphemeralSigner(t *testing.T) {
	a, err := NewSigner("")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	b, _ := NewSigner("")
	tok, _ := a.Issue("sid", time.Now())
	if b.Verify("sid", tok, time.Now()) {
		t.Fatalf("ephemeral keys should differ")
	}
}

func TestCreateGetDelete(t *testing.T) {
	m, _ := newTestManager(t, time.Hour, 0)
	before := testutil.ToFloat64(metrics.ActiveSessions)

	s, err := m.Create("contact", newForm(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" || s.Token == "" {
		t.Fatalf("session missing id or token: %+v", s)
	}
	if !m.VerifyToken(s, s.Token) {
		t.Fatalf("issued token rejected")
	}

	got, err := m.Get("contact", s.ID)
	if err != nil || got != s {
		t.Fatalf("Get: %v", err)
	}
	if _, err := m.Get("other-form", s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session leaked across forms: %v", err)
	}
	if d := testutil.ToFloat64(metrics.ActiveSessions) - before; d != 1 {
		t.Fatalf("active sessions delta = %v", d)
	}

	m.Delete(s.ID)
	m.Delete(s.ID)
	if _, err := m.Get("contact", s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d", m.Len())
	}
}

func TestIdleEviction(t *testing.T) {
	m, c := newTestManager(t, 10*time.Minute, 0)
	stale, _ := m.Create("f", newForm(t))
	c.advance(8 * time.Minute)
	fresh, _ := m.Create("f", newForm(t))
	c.advance(5 * time.Minute)

	before := testutil.ToFloat64(metrics.SessionEvictTotal)
	if n := m.Evict(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, err := m.Get("f", stale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale session survived")
	}
	if _, err := m.Get("f", fresh.ID); err != nil {
		t.Fatalf("fresh session evicted: %v", err)
	}
	if d := testutil.ToFloat64(metrics.SessionEvictTotal) - before; d != 1 {
		t.Fatalf("evict counter delta = %v", d)
	}
}

func TestLRUEvictionOnCreate(t *testing.T) {
	m, c := newTestManager(t, 0, 2)

	a, _ := m.Create("f", newForm(t))
	c.advance(time.Second)
	b, _ := m.Create("f", newForm(t))
	c.advance(time.Second)
	if _, err := m.Get("f", a.ID); err != nil { // a is now most recent
		t.Fatalf("Get a: %v", err)
	}
	c.advance(time.Second)
	_, _ = m.Create("f", newForm(t))

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if _, err := m.Get("f", b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("least recently used session survived")
	}
	if _, err := m.Get("f", a.ID); err != nil {
		t.Fatalf("recently used session evicted: %v", err)
	}
}

func TestCreateNeverEvictsTheNewSession(t *testing.T) {
	m, _ := newTestManager(t, 0, 1)

	// The clock never moves, so every session ties on last use.
	var last *Session
	for i := 0; i < 5; i++ {
		s, err := m.Create("f", newForm(t))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := m.Get("f", s.ID); err != nil {
			t.Fatalf("session %d evicted by its own Create: %v", i, err)
		}
		last = s
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	if _, err := m.Get("f", last.ID); err != nil {
		t.Fatalf("newest session missing: %v", err)
	}
}
