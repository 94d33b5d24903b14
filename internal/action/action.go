// internal/action/action.go
//
// Formstate – post-submit actions.
//
// Context
//   A definition may list actions to run once a submit passes validation.
//   Runner executes them in declaration order and becomes the form's
//   OnSubmit.  Kinds:
//
//     log      write the submission to the structured log.
//     store    insert a row (values as JSON plus client metadata) via sqlx.
//     webhook  POST the submission as JSON.  A 422 reply carrying
//              {"errors": {field: message}} is mapped back onto the form.
//
// Workflow
//   •  The HTTP layer stores request metadata (session, user agent, remote
//      address) in the context with WithMeta; Runner reads it back.
//   •  The first failing action stops the run and its error is returned, so
//      HandleSubmit reports it to the client unchanged.
//
//------------------------------------------------------------------------------

package action

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/AdeptTravel/formstate/internal/definition"
	"github.com/AdeptTravel/formstate/internal/form"
	"github.com/AdeptTravel/formstate/internal/logger"
)

// Action errors.
var (
	// ErrRejected is returned when a webhook refused the submission and
	// reported field errors.
	ErrRejected = errors.New("action: submission rejected")

	// ErrNoDatabase is returned by the store action when no database is
	// configured.
	ErrNoDatabase = errors.New("action: store requires a database")
)

// Meta is request metadata recorded with a submission.
type Meta struct {
	SessionID  string
	UserAgent  string
	RemoteAddr string
}

type metaKey struct{}

// WithMeta returns a copy of ctx carrying m.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the Meta stored by WithMeta, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// Submission is what every action sees.
type Submission struct {
	FormID      string
	Values      form.Values
	Meta        Meta
	SubmittedAt time.Time
}

// Runner executes actions.  The zero value is not usable; call NewRunner.
type Runner struct {
	db     *sqlx.DB
	client *http.Client
	now    func() time.Time
}

// NewRunner returns a Runner.  db may be nil, in which case store actions
// fail with ErrNoDatabase.  client defaults to a 10 s timeout client.
func NewRunner(db *sqlx.DB, client *http.Client) *Runner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Runner{db: db, client: client, now: time.Now}
}

// OnSubmit builds the SubmitFunc for one form definition.
func (r *Runner) OnSubmit(fd *definition.FormDef) form.SubmitFunc {
	return func(ctx context.Context, values form.Values, h form.Helpers) error {
		sub := Submission{
			FormID:      fd.ID,
			Values:      values,
			Meta:        MetaFrom(ctx),
			SubmittedAt: r.now().UTC(),
		}
		return r.Run(ctx, fd.Actions, sub, h)
	}
}

// Run executes defs in order and stops at the first error.
func (r *Runner) Run(ctx context.Context, defs []definition.ActionDef, sub Submission, h form.Helpers) error {
	log := logger.FromContext(ctx).With("form", sub.FormID, "session", sub.Meta.SessionID)

	for _, ac := range defs {
		var err error
		switch ac.Type {
		case "log":
			err = runLog(log, ac.Params, sub)
		case "store":
			err = r.runStore(ctx, ac.Params, sub)
		case "webhook":
			err = r.runWebhook(ctx, ac.Params, sub, h)
		default:
			log.Warnw("form action skipped", "action", ac.Type, "reason", "unsupported action")
			continue
		}
		if err != nil {
			log.Errorw("form action failed", "action", ac.Type, "err", err)
			return fmt.Errorf("action %s: %w", ac.Type, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Log action
// -----------------------------------------------------------------------------

// runLog logs the submission.  Values are included only when the action
// sets `values: true`, keeping personal data out of logs by default.
func runLog(log *zap.SugaredLogger, p map[string]any, sub Submission) error {
	fields := []any{"fields", len(sub.Values), "user_agent", sub.Meta.UserAgent}
	if withValues, _ := p["values"].(bool); withValues {
		fields = append(fields, "values", sub.Values)
	}
	log.Infow("form submission", fields...)
	return nil
}
