package crpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/3xpluto/go-crpt-client/internal/admission"
	"github.com/3xpluto/go-crpt-client/internal/auth"
	"github.com/3xpluto/go-crpt-client/internal/document"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testDoc(id string) *document.Document {
	return &document.Document{
		DocID:   id,
		DocType: "LP_INTRODUCE_GOODS",
		Description: &document.Description{
			ParticipantInn: "1234567890",
		},
	}
}

func TestSubmitSendsSignedRequest(t *testing.T) {
	type seen struct {
		method      string
		contentType string
		signature   string
		authz       string
		rid         string
		body        map[string]any
	}
	var got seen

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		got.signature = r.Header.Get("Signature")
		got.authz = r.Header.Get("Authorization")
		got.rid = r.Header.Get("X-Request-Id")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
	}))
	defer srv.Close()

	gate, err := admission.NewWindow(10, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer gate.Close()

	c := New(Options{
		URL:    srv.URL,
		Tokens: auth.NewTokenSource("opaque-token"),
	}, gate, discardLogger())

	if err := c.Submit(context.Background(), testDoc("doc-1"), "sig-abc"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", got.method)
	}
	if got.contentType != "application/json" {
		t.Fatalf("unexpected content type %q", got.contentType)
	}
	if got.signature != "sig-abc" {
		t.Fatalf("unexpected signature header %q", got.signature)
	}
	if got.authz != "Bearer opaque-token" {
		t.Fatalf("unexpected authorization header %q", got.authz)
	}
	if got.rid == "" {
		t.Fatal("expected a generated request id")
	}
	if got.body["doc_id"] != "doc-1" {
		t.Fatalf("unexpected body doc_id: %v", got.body["doc_id"])
	}
}

func TestSubmitHoldsSendsToTheWindow(t *testing.T) {
	const window = 300 * time.Millisecond

	var mu sync.Mutex
	var hits []time.Duration
	start := time.Now()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits = append(hits, time.Since(start))
		mu.Unlock()
	}))
	defer srv.Close()

	gate, err := admission.NewWindow(1, window)
	if err != nil {
		t.Fatal(err)
	}
	defer gate.Close()

	c := New(Options{URL: srv.URL}, gate, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Submit(context.Background(), testDoc("doc"), "sig"); err != nil {
				t.Errorf("submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(hits) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(hits))
	}

	// No more than one request may reach the server per window: the
	// permit is taken before the request leaves.
	inFirst := 0
	for _, h := range hits {
		if h < window-50*time.Millisecond {
			inFirst++
		}
	}
	if inFirst > 1 {
		t.Fatalf("%d requests arrived inside the first window", inFirst)
	}
}

func TestSubmitReportsRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gate, err := admission.NewWindow(5, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer gate.Close()

	var observed Outcome
	c := New(Options{
		URL:      srv.URL,
		Observer: func(o Outcome) { observed = o },
	}, gate, discardLogger())

	err = c.Submit(context.Background(), testDoc("doc-err"), "sig")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected StatusError 500, got %v", err)
	}
	if observed.Status != http.StatusInternalServerError || observed.DocID != "doc-err" {
		t.Fatalf("observer saw %+v", observed)
	}
}

func TestSubmitReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from now on

	gate, err := admission.NewWindow(5, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer gate.Close()

	var observed Outcome
	c := New(Options{
		URL:      srv.URL,
		Observer: func(o Outcome) { observed = o },
	}, gate, discardLogger())

	if err := c.Submit(context.Background(), testDoc("doc-net"), "sig"); err == nil {
		t.Fatal("expected a transport error")
	}
	if observed.Err == nil || observed.Status != 0 {
		t.Fatalf("observer saw %+v", observed)
	}
}

func TestSubmitCancelledWhileWaiting(t *testing.T) {
	var requests int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
	}))
	defer srv.Close()

	gate, err := admission.NewWindow(1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer gate.Close()

	c := New(Options{URL: srv.URL}, gate, discardLogger())

	if err := c.Submit(context.Background(), testDoc("doc-a"), "sig"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = c.Submit(ctx, testDoc("doc-b"), "sig")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Fatalf("the cancelled submission must not reach the server; saw %d requests", requests)
	}
}

func TestSubmitRejectsIncompleteDocumentBeforeAcquire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("server should not be reached")
	}))
	defer srv.Close()

	gate, err := admission.NewWindow(1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer gate.Close()

	c := New(Options{URL: srv.URL}, gate, discardLogger())

	err = c.Submit(context.Background(), &document.Document{}, "sig")
	if !errors.Is(err, document.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if gate.Available() != 1 {
		t.Fatal("validation failure must not consume a permit")
	}
}
