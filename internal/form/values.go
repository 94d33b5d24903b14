// internal/form/values.go
//
// Formstate – value container.
//
// Context
//   Pure state.  Every write installs a fresh map so snapshots already handed
//   to subscribers stay untouched.  Validation side effects are layered on
//   top by SetFieldValue in validate.go.
//
//------------------------------------------------------------------------------

package form

import (
	"maps"

	"github.com/AdeptTravel/formstate/internal/store"
)

type valueStore struct {
	w *store.Writable[Values]
}

func newValueStore(initial Values) *valueStore {
	return &valueStore{w: store.New(initial)}
}

func (s *valueStore) get() Values { return s.w.Get() }

// set replaces exactly one field and notifies subscribers with the new
// snapshot.
func (s *valueStore) set(name string, value any) {
	s.w.Update(func(cur Values) Values {
		next := maps.Clone(cur)
		if next == nil {
			next = make(Values, 1)
		}
		next[name] = value
		return next
	})
}

func (s *valueStore) replaceAll(values Values) {
	if values == nil {
		values = Values{}
	}
	s.w.Set(values)
}
