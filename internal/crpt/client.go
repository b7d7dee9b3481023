// Package crpt submits marking documents to the Chestny ZNAK
// registration API under a fixed-window rate ceiling.
package crpt

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/3xpluto/go-crpt-client/internal/admission"
	"github.com/3xpluto/go-crpt-client/internal/auth"
	"github.com/3xpluto/go-crpt-client/internal/document"
)

// DefaultURL is the production document-creation endpoint.
const DefaultURL = "https://ismp.crpt.ru/api/v3/lk/documents/create"

// StatusError reports a response the API did not accept.
type StatusError struct {
	DocID string
	Code  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("document %s rejected with status %d", e.DocID, e.Code)
}

type Options struct {
	URL      string
	Timeout  time.Duration     // per-request timeout, 0 for none
	Tokens   *auth.TokenSource // optional bearer token
	Observer Observer          // optional; defaults to slog output
	Metrics  *Metrics          // optional
}

// Client orchestrates serialize -> acquire -> send -> observe. The
// permit is always taken before the request leaves; a permit, once
// granted, stays spent for the rest of the window whatever the send
// outcome.
type Client struct {
	http    *http.Client
	url     string
	gate    admission.Controller
	tokens  *auth.TokenSource
	log     *slog.Logger
	observe Observer
	metrics *Metrics
}

func New(opts Options, gate admission.Controller, log *slog.Logger) *Client {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		url:     url,
		gate:    gate,
		tokens:  opts.Tokens,
		log:     log,
		observe: opts.Observer,
		metrics: opts.Metrics,
	}
}

// Submit sends one document. It blocks while the current window's
// allowance is spent; cancelling ctx abandons the wait without
// consuming a permit. Send failures are not retried.
func (c *Client) Submit(ctx context.Context, doc *document.Document, signature string) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.DocID, err)
	}

	rid := newRequestID()
	start := time.Now()

	if err := c.gate.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire permit for document %s: %w", doc.DocID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for document %s: %w", doc.DocID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", signature)
	req.Header.Set("X-Request-Id", rid)
	if c.tokens != nil && c.tokens.Token() != "" {
		req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.done(Outcome{DocID: doc.DocID, RequestID: rid, Duration: time.Since(start), Err: err})
		return fmt.Errorf("send document %s: %w", doc.DocID, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	c.done(Outcome{DocID: doc.DocID, RequestID: rid, Status: resp.StatusCode, Duration: time.Since(start)})
	if resp.StatusCode != http.StatusOK {
		return &StatusError{DocID: doc.DocID, Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) done(o Outcome) {
	if c.metrics != nil {
		code := "error"
		if o.Err == nil {
			code = strconv.Itoa(o.Status)
		}
		c.metrics.Submissions.WithLabelValues(code).Inc()
		c.metrics.Latency.Observe(o.Duration.Seconds())
	}
	if c.observe != nil {
		c.observe(o)
		return
	}
	switch {
	case o.Err != nil:
		c.log.Error("submission failed",
			slog.String("rid", o.RequestID),
			slog.String("doc_id", o.DocID),
			slog.String("error", o.Err.Error()),
		)
	case o.Status == http.StatusOK:
		c.log.Info("submission accepted",
			slog.String("rid", o.RequestID),
			slog.String("doc_id", o.DocID),
			slog.String("duration", o.Duration.String()),
		)
	default:
		c.log.Warn("submission rejected",
			slog.String("rid", o.RequestID),
			slog.String("doc_id", o.DocID),
			slog.Int("status", o.Status),
		)
	}
}

func newRequestID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
