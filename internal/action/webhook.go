// internal/action/webhook.go
//
// Webhook action: POST the submission as JSON.
//
//	actions:
//	  - type: webhook
//	    url: https://hooks.example.com/contact
//	    method: PUT                        # optional, default POST
//	    headers: {Authorization: "Bearer …"}
//
// Any 2xx reply succeeds.  A 422 whose body is {"errors": {field: message}}
// becomes field errors on the form and ErrRejected.  Everything else fails.

package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AdeptTravel/formstate/internal/form"
	"github.com/AdeptTravel/formstate/internal/structural"
)

// maxReplyBytes bounds how much of a webhook reply is read.
const maxReplyBytes = 64 << 10

type webhookPayload struct {
	FormID      string         `json:"form_id"`
	SessionID   string         `json:"session_id,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Values      map[string]any `json:"values"`
}

type webhookReply struct {
	Errors map[string]string `json:"errors"`
}

func (r *Runner) runWebhook(ctx context.Context, p map[string]any, sub Submission, h form.Helpers) error {
	url, ok := p["url"].(string)
	if !ok || url == "" {
		return fmt.Errorf("webhook action requires 'url'")
	}
	method, _ := p["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(webhookPayload{
		FormID:      sub.FormID,
		SessionID:   sub.Meta.SessionID,
		SubmittedAt: sub.SubmittedAt,
		Values:      structural.Finite(sub.Values),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if hdrs, ok := p["headers"].(map[string]any); ok {
		for k, v := range hdrs {
			req.Header.Set(k, fmt.Sprint(v))
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var reply webhookReply
		if err := json.Unmarshal(body, &reply); err == nil && len(reply.Errors) > 0 {
			for name, msg := range reply.Errors {
				h.SetFieldError(name, msg)
			}
			return ErrRejected
		}
	}
	return fmt.Errorf("webhook %s %s: unexpected status %d", method, url, resp.StatusCode)
}
