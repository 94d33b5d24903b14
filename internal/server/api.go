// internal/server/api.go
//
// Formstate – HTTP binding.
//
// Context
//   Exposes live forms over JSON so any client (a browser script, a mobile
//   app, a test) can drive the engine.  Each session is one *form.Form; the
//   client forwards element events and reads back values, errors, and the
//   lifecycle flags.
//
// Routes
//   GET    /healthz
//   GET    /metrics
//   GET    /forms/{formID}                              definition summary
//   POST   /forms/{formID}/sessions                     open a session
//   GET    /forms/{formID}/sessions/{sid}               session state
//   DELETE /forms/{formID}/sessions/{sid}               close a session
//   POST   /forms/{formID}/sessions/{sid}/events/{kind} change|input|blur|focus
//   POST   /forms/{formID}/sessions/{sid}/validate/{field}
//   POST   /forms/{formID}/sessions/{sid}/submit        needs X-Form-Token
//
// Notes
//   Form IDs are namespaced with "/" ("account/signup"), which cannot sit in
//   one path segment, so URLs spell the separator as "." (account.signup).
//
//------------------------------------------------------------------------------

package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AdeptTravel/formstate/internal/action"
	"github.com/AdeptTravel/formstate/internal/definition"
	"github.com/AdeptTravel/formstate/internal/form"
	"github.com/AdeptTravel/formstate/internal/logger"
	"github.com/AdeptTravel/formstate/internal/middleware"
	"github.com/AdeptTravel/formstate/internal/session"
)

// TokenHeader carries the submit token.
const TokenHeader = "X-Form-Token"

// Options carries the process-wide form policy.
type Options struct {
	ValidateOnChange bool
	ValidateOnInput  bool
	ValidateOnBlur   bool
	SubmitTimeout    time.Duration
	ForceHTTPS       bool
}

// API wires the registry, sessions, and actions to HTTP.
type API struct {
	defs     *definition.Registry
	sessions *session.Manager
	actions  *action.Runner
	opts     Options
	log      *zap.SugaredLogger
}

// NewAPI returns an API.  log defaults to zap.S().
func NewAPI(defs *definition.Registry, sessions *session.Manager, actions *action.Runner, opts Options, log *zap.SugaredLogger) *API {
	if log == nil {
		log = zap.S()
	}
	return &API{defs: defs, sessions: sessions, actions: actions, opts: opts, log: log}
}

// Routes returns the root handler.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestLogger(a.log),
		chimw.Recoverer,
		middleware.Security,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": a.sessions.Len()})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/forms/{formID}", func(r chi.Router) {
		r.Use(a.loadDefinition)
		r.Get("/", a.getDefinition)
		r.Post("/sessions", a.createSession)

		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Use(a.loadSession)
			r.Get("/", a.getSession)
			r.Delete("/", a.deleteSession)
			r.Post("/events/{kind}", a.postEvent)
			r.Post("/validate/{field}", a.postValidate)
			r.Post("/submit", a.postSubmit)
		})
	})

	if a.opts.ForceHTTPS {
		return middleware.ForceHTTPS(r)
	}
	return r
}

// -----------------------------------------------------------------------------
// Context plumbing
// -----------------------------------------------------------------------------

type (
	entryKey   struct{}
	sessionKey struct{}
)

// formID turns the URL spelling back into a definition ID.
func formID(r *http.Request) string {
	return strings.ReplaceAll(chi.URLParam(r, "formID"), ".", "/")
}

func (a *API) loadDefinition(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, err := a.defs.Get(formID(r))
		if errors.Is(err, definition.ErrNotFound) {
			writeError(w, http.StatusNotFound, "form not found")
			return
		}
		if err != nil {
			logger.FromContext(r.Context()).Errorw("form definition load failed", "form", formID(r), "err", err)
			writeError(w, http.StatusInternalServerError, "form unavailable")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), entryKey{}, e)))
	})
}

func (a *API) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.sessions.Get(formID(r), chi.URLParam(r, "sid"))
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("session", s.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func entryFrom(r *http.Request) *definition.Entry {
	return r.Context().Value(entryKey{}).(*definition.Entry)
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (a *API) getDefinition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newDefinitionView(entryFrom(r).Def))
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	f, err := a.buildForm(e)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("form build failed", "form", e.Def.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "form unavailable")
		return
	}
	s, err := a.sessions.Create(e.Def.ID, f)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("session create failed", "form", e.Def.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	logger.FromContext(r.Context()).Debugw("session opened", "form", e.Def.ID, "session", s.ID)
	writeJSON(w, http.StatusCreated, newStateView(s, true))
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(sessionFrom(r), false))
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	a.sessions.Delete(sessionFrom(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

// eventBody is one element event.
type eventBody struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func (a *API) postEvent(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)

	var body eventBody
	if err := readJSON(w, r, &body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "event needs a field name")
		return
	}
	ev := form.InputEvent{Name: body.Name, Type: body.Type, Value: body.Value}

	switch chi.URLParam(r, "kind") {
	case "change":
		s.Form.HandleChange(ev)
	case "input":
		s.Form.HandleInput(ev)
	case "blur":
		s.Form.HandleBlur(ev)
	case "focus":
		s.Form.HandleFocus(ev)
	default:
		writeError(w, http.StatusNotFound, "unknown event kind")
		return
	}
	writeJSON(w, http.StatusOK, newStateView(s, false))
}

func (a *API) postValidate(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	field := chi.URLParam(r, "field")
	if !slices.Contains(entryFrom(r).Schema.Fields(), field) {
		writeError(w, http.StatusNotFound, "unknown field")
		return
	}
	s.Form.ValidateField(r.Context(), field)
	writeJSON(w, http.StatusOK, newStateView(s, false))
}

func (a *API) postSubmit(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if !a.sessions.VerifyToken(s, r.Header.Get(TokenHeader)) {
		writeError(w, http.StatusForbidden, "invalid or expired form token")
		return
	}

	ctx := r.Context()
	if a.opts.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.SubmitTimeout)
		defer cancel()
	}
	ctx = action.WithMeta(ctx, action.Meta{
		SessionID:  s.ID,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
	})

	err := s.Form.HandleSubmit(ctx, nil)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case form.IsValidationError(err), errors.Is(err, action.ErrRejected):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": s.Form.FieldErrors()})
	case errors.Is(err, form.ErrSubmitInProgress):
		writeError(w, http.StatusConflict, "submit already in progress")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "submission timed out")
	default:
		writeError(w, http.StatusBadGateway, "submission failed")
	}
}

// buildForm creates a live form for one definition.
func (a *API) buildForm(e *definition.Entry) (*form.Form, error) {
	change, input, blur := e.Def.Policy(a.opts.ValidateOnChange, a.opts.ValidateOnInput, a.opts.ValidateOnBlur)
	return form.New(&form.Config{
		InitialValues:    e.Def.InitialValues(),
		Schema:           e.Schema,
		ValidateOnChange: change,
		ValidateOnInput:  input,
		ValidateOnBlur:   blur,
		OnSubmit:         a.actions.OnSubmit(e.Def),
		Logger:           a.log.With("form", e.Def.ID),
	})
}
