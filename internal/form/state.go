// internal/form/state.go
//
// Formstate – submission lifecycle flags.
//
// Context
//   isSubmitting and isValidating are independent boolean stores.  Both start
//   false.  enter flips a flag on and hands back the func that flips it off,
//   so callers pair it with defer and every exit path clears the flag.
//
//------------------------------------------------------------------------------

package form

import "github.com/AdeptTravel/formstate/internal/store"

// submissionState is the pair of independent lifecycle flags.
type submissionState struct {
	submitting *store.Writable[bool]
	validating *store.Writable[bool]
}

func newSubmissionState() *submissionState {
	return &submissionState{
		submitting: store.New(false),
		validating: store.New(false),
	}
}

// enter sets flag and returns the func that clears it.  Use with defer.
func enter(flag *store.Writable[bool]) (leave func()) {
	flag.Set(true)
	return func() { flag.Set(false) }
}
