// internal/action/store.go
//
// Store action: one row per submission.
//
//	actions:
//	  - type: store
//	    table: contact_submission   # optional, default form_submission
//
// Expected columns: form_id, session_id, submitted_at, data (JSON), browser,
// os, device, is_bot, remote_addr.  The table name is an identifier, so it
// is checked against a strict pattern before being interpolated.

package action

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/AdeptTravel/formstate/internal/structural"
	"github.com/AdeptTravel/formstate/internal/ua"
)

const defaultTable = "form_submission"

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// submissionRow maps onto the submission table.
type submissionRow struct {
	FormID      string    `db:"form_id"`
	SessionID   string    `db:"session_id"`
	SubmittedAt time.Time `db:"submitted_at"`
	Data        []byte    `db:"data"`
	Browser     string    `db:"browser"`
	OS          string    `db:"os"`
	Device      string    `db:"device"`
	IsBot       bool      `db:"is_bot"`
	RemoteAddr  string    `db:"remote_addr"`
}

func (r *Runner) runStore(ctx context.Context, p map[string]any, sub Submission) error {
	if r.db == nil {
		return ErrNoDatabase
	}

	table := defaultTable
	if t, ok := p["table"].(string); ok && t != "" {
		table = t
	}
	if !tablePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	data, err := json.Marshal(structural.Finite(sub.Values))
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}

	info := ua.Parse(sub.Meta.UserAgent)
	row := submissionRow{
		FormID:      sub.FormID,
		SessionID:   sub.Meta.SessionID,
		SubmittedAt: sub.SubmittedAt,
		Data:        data,
		Browser:     info.Browser,
		OS:          info.OS,
		Device:      info.Device,
		IsBot:       info.IsBot,
		RemoteAddr:  sub.Meta.RemoteAddr,
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(form_id, session_id, submitted_at, data, browser, os, device, is_bot, remote_addr)
		VALUES (:form_id, :session_id, :submitted_at, :data, :browser, :os, :device, :is_bot, :remote_addr)`, table)

	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}
