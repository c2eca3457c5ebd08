// Package notify delivers the final (competition, message) pair to the
// downstream notification service. One attempt per finalized result; retry
// policy belongs to the operator, not this client.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "github.com/airwin/platform/internal/errors"
	"github.com/airwin/platform/internal/trace"
)

const callTimeout = 30 * time.Second

// Payload is the single artifact handed downstream.
type Payload struct {
	CompName string `json:"comp_name"`
	Message  string `json:"message_data"`
}

// Notifier posts delivery payloads.
type Notifier struct {
	url     string
	auth    string
	httpCli *http.Client
}

// New creates a notifier.
func New(url, auth string) *Notifier {
	return &Notifier{
		url:     url,
		auth:    auth,
		httpCli: &http.Client{Timeout: callTimeout},
	}
}

// Deliver makes a single delivery attempt. Any non-2xx status is a failure;
// the caller logs it and the session ends without re-attempting.
func (n *Notifier) Deliver(ctx context.Context, compName, message string) error {
	ctx, span := trace.StartSpan(ctx, "deliver_result")
	defer span.End()
	span.SetAttr("comp", compName)

	body, err := json.Marshal(Payload{CompName: compName, Message: message})
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", n.auth)

	resp, err := n.httpCli.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.DeliveryFailed, "notifier call")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return apperrors.Newf(apperrors.DeliveryFailed, "notifier status %d: %s", resp.StatusCode, msg)
	}

	trace.Logger(ctx).Info("result delivered", "comp", compName)
	return nil
}
