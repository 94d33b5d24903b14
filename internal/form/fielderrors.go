// internal/form/fielderrors.go
//
// Formstate – error container.
//
// Context
//   Holds one message per field.  "" and a missing key both mean "no
//   error".  Alongside the map we remember which fields have a settled
//   validation result, so callers can tell "validated and clean" apart from
//   "never checked", which the map alone cannot express.
//
//------------------------------------------------------------------------------

package form

import (
	"maps"
	"sync"

	"github.com/AdeptTravel/formstate/internal/store"
)

type errorStore struct {
	w *store.Writable[Errors]

	mu      sync.Mutex
	checked map[string]bool
}

func newErrorStore(initial Errors) *errorStore {
	return &errorStore{
		w:       store.New(initial),
		checked: make(map[string]bool),
	}
}

func (s *errorStore) get() Errors { return s.w.Get() }

// setFieldError sets message for name; "" clears it.  The key is kept either
// way so the map's key set never shrinks.
func (s *errorStore) setFieldError(name, message string) {
	s.w.Update(func(cur Errors) Errors {
		next := maps.Clone(cur)
		if next == nil {
			next = make(Errors, 1)
		}
		next[name] = message
		return next
	})
}

// settle records a validation result for name.
func (s *errorStore) settle(name, message string) {
	s.mu.Lock()
	s.checked[name] = true
	s.mu.Unlock()
	s.setFieldError(name, message)
}

// replaceAll overwrites the map.  When settled is true every key in errs is
// marked as checked.
func (s *errorStore) replaceAll(errs Errors, settled bool) {
	next := maps.Clone(errs)
	if next == nil {
		next = Errors{}
	}
	if settled {
		s.mu.Lock()
		for name := range next {
			s.checked[name] = true
		}
		s.mu.Unlock()
	}
	s.w.Set(next)
}

func (s *errorStore) reset(initial Errors) {
	s.mu.Lock()
	clear(s.checked)
	s.mu.Unlock()
	s.w.Set(initial)
}

func (s *errorStore) isChecked(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked[name]
}
