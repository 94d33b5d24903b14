// internal/server/view.go
//
// JSON views and response helpers.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/AdeptTravel/formstate/internal/definition"
	"github.com/AdeptTravel/formstate/internal/session"
	"github.com/AdeptTravel/formstate/internal/structural"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// stateView is a session snapshot.  Token is only sent when the session is
// created.
type stateView struct {
	ID         string            `json:"id"`
	FormID     string            `json:"form_id"`
	Token      string            `json:"token,omitempty"`
	Values     map[string]any    `json:"values"`
	Errors     map[string]string `json:"errors"`
	Dirty      []string          `json:"dirty"`
	Submitting bool              `json:"submitting"`
	Validating bool              `json:"validating"`
}

func newStateView(s *session.Session, withToken bool) stateView {
	f := s.Form
	v := stateView{
		ID:         s.ID,
		FormID:     s.FormID,
		Values:     structural.Finite(f.Snapshot()),
		Errors:     f.FieldErrors(),
		Dirty:      f.Dirty(),
		Submitting: f.IsSubmitting().Get(),
		Validating: f.IsValidating().Get(),
	}
	if v.Dirty == nil {
		v.Dirty = []string{}
	}
	if withToken {
		v.Token = s.Token
	}
	return v
}

type fieldView struct {
	Name     string   `json:"name"`
	Label    string   `json:"label,omitempty"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

type definitionView struct {
	ID     string      `json:"id"`
	Title  string      `json:"title,omitempty"`
	Fields []fieldView `json:"fields"`
}

func newDefinitionView(fd *definition.FormDef) definitionView {
	all := fd.AllFields()
	v := definitionView{ID: fd.ID, Title: fd.Title, Fields: make([]fieldView, 0, len(all))}
	for _, f := range all {
		v.Fields = append(v.Fields, fieldView{
			Name:     f.Name,
			Label:    f.Label,
			Type:     f.Type,
			Required: f.Required,
			Options:  f.Options,
		})
	}
	return v
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
