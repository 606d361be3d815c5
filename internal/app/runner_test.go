package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/webtext/internal/config"
	"github.com/samvad-hq/webtext/internal/domain"
	"github.com/samvad-hq/webtext/internal/journal"
	"github.com/samvad-hq/webtext/pkg/sinks"
	"github.com/samvad-hq/webtext/pkg/webtext"
)

// fakeClient records which operation was used and answers with fixed values.
type fakeClient struct {
	mu     sync.Mutex
	used   []string
	text   string
	status int
	err    error
	body   string
	ctype  string
	hang   <-chan struct{}
}

func (f *fakeClient) mark(op string) {
	f.mu.Lock()
	f.used = append(f.used, op)
	f.mu.Unlock()
}

func (f *fakeClient) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.used...)
}

func (f *fakeClient) answer(cb webtext.Callback) {
	if f.err != nil {
		cb(webtext.ErrorPrefix+f.err.Error(), 0)
		return
	}
	cb(f.text, f.status)
}

func (f *fakeClient) result() <-chan webtext.Result {
	ch := make(chan webtext.Result, 1)
	ch <- webtext.Result{Text: f.text, Err: f.err}
	close(ch)
	return ch
}

func (f *fakeClient) done(cb webtext.Callback) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		f.answer(cb)
	}()
	return ch
}

func (f *fakeClient) Get(string) (string, error) {
	f.mark("Get")
	if f.hang != nil {
		<-f.hang
	}
	return f.text, f.err
}

func (f *fakeClient) GetAsync(string) <-chan webtext.Result {
	f.mark("GetAsync")
	return f.result()
}

func (f *fakeClient) GetCallback(_ string, cb webtext.Callback) {
	f.mark("GetCallback")
	f.answer(cb)
}

func (f *fakeClient) GetAsyncCallback(_ string, cb webtext.Callback) <-chan struct{} {
	f.mark("GetAsyncCallback")
	return f.done(cb)
}

func (f *fakeClient) Post(_, body, ct string) (string, error) {
	f.mark("Post")
	f.body, f.ctype = body, ct
	return f.text, f.err
}

func (f *fakeClient) PostAsync(_, body, ct string) <-chan webtext.Result {
	f.mark("PostAsync")
	f.body, f.ctype = body, ct
	return f.result()
}

func (f *fakeClient) PostCallback(_, body string, cb webtext.Callback, ct string) {
	f.mark("PostCallback")
	f.body, f.ctype = body, ct
	f.answer(cb)
}

func (f *fakeClient) PostAsyncCallback(_, body string, cb webtext.Callback, ct string) <-chan struct{} {
	f.mark("PostAsyncCallback")
	f.body, f.ctype = body, ct
	return f.done(cb)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []sinks.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt sinks.Event) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	if p.err != nil {
		return 0, p.err
	}
	return 1, nil
}

type failingStore struct{}

func (failingStore) Close() error                          { return nil }
func (failingStore) Record(domain.Exchange) error          { return errors.New("disk full") }
func (failingStore) Recent(int) ([]domain.Exchange, error) { return nil, errors.New("disk full") }

func newTestRunner(t *testing.T, client TextClient, pub Publisher) *Runner {
	t.Helper()
	store, err := journal.NewStore("bbolt", filepath.Join(t.TempDir(), "journal.db"), journal.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	r := NewRunner(client, store, pub, nil)
	r.newID = func() string { return "ex-1" }
	return r
}

func TestExchangeDispatchesEveryOperation(t *testing.T) {
	cases := []struct {
		method string
		mode   Mode
		op     string
	}{
		{"GET", ModeSync, "Get"},
		{"GET", ModeAsync, "GetAsync"},
		{"GET", ModeCallback, "GetCallback"},
		{"GET", ModeAsyncCallback, "GetAsyncCallback"},
		{"POST", ModeSync, "Post"},
		{"POST", ModeAsync, "PostAsync"},
		{"POST", ModeCallback, "PostCallback"},
		{"POST", ModeAsyncCallback, "PostAsyncCallback"},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			client := &fakeClient{text: `{"k":1}`, status: 200}
			r := newTestRunner(t, client, nil)

			ex, err := r.Exchange(context.Background(), Call{Method: tc.method, URL: "http://example.test", Body: "b", Mode: tc.mode})
			if err != nil {
				t.Fatalf("Exchange: %v", err)
			}
			if ops := client.ops(); len(ops) != 1 || ops[0] != tc.op {
				t.Fatalf("expected only %s, got %v", tc.op, ops)
			}
			if ex.Text != `{"k":1}` {
				t.Fatalf("text = %q", ex.Text)
			}
			if tc.mode.Callback() != ex.HasStatus {
				t.Fatalf("HasStatus = %v for mode %s", ex.HasStatus, tc.mode)
			}
			if ex.HasStatus && ex.Status != 200 {
				t.Fatalf("status = %d", ex.Status)
			}
		})
	}
}

func TestExchangePlainModeReturnsTransportError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	pub := &fakePublisher{}
	r := newTestRunner(t, client, pub)

	ex, err := r.Exchange(context.Background(), Call{URL: "http://example.test"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ex.Error != "connection refused" || !ex.Failed() {
		t.Fatalf("exchange should record the failure: %#v", ex)
	}
	if len(pub.events) != 1 || pub.events[0].Error == "" {
		t.Fatalf("failure should still be published: %#v", pub.events)
	}
}

func TestExchangeCallbackModeNeverFails(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	r := newTestRunner(t, client, nil)

	for _, mode := range []Mode{ModeCallback, ModeAsyncCallback} {
		ex, err := r.Exchange(context.Background(), Call{URL: "http://example.test", Mode: mode})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", mode, err)
		}
		if ex.Status != 0 || ex.Text != "Error: connection refused" || ex.Error != ex.Text {
			t.Fatalf("%s: unexpected exchange %#v", mode, ex)
		}
	}
}

func TestExchangePostDefaultsContentType(t *testing.T) {
	client := &fakeClient{text: "ok"}
	r := newTestRunner(t, client, nil)

	ex, err := r.Exchange(context.Background(), Call{Method: "post", URL: "http://example.test", Body: "hello"})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if client.body != "hello" || client.ctype != "" {
		t.Fatalf("client got body=%q ctype=%q", client.body, client.ctype)
	}
	if ex.ContentType != webtext.DefaultContentType {
		t.Fatalf("recorded content type = %q", ex.ContentType)
	}
}

func TestExchangeRejectsBadCalls(t *testing.T) {
	r := newTestRunner(t, &fakeClient{}, nil)
	bad := []Call{
		{URL: ""},
		{Method: "DELETE", URL: "http://example.test"},
		{URL: "http://example.test", Mode: "later"},
	}
	for _, c := range bad {
		if _, err := r.Exchange(context.Background(), c); err == nil {
			t.Fatalf("expected error for %#v", c)
		}
	}
}

func TestExchangeJournalAndSinkFailuresAreNotReturned(t *testing.T) {
	pub := &fakePublisher{err: errors.New("sink down")}
	r := NewRunner(&fakeClient{text: "ok"}, failingStore{}, pub, nil)

	if _, err := r.Exchange(context.Background(), Call{URL: "http://example.test"}); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if _, err := r.History(5); err == nil {
		t.Fatalf("expected journal read error")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	client := &fakeClient{text: "ok"}
	r := newTestRunner(t, client, nil)
	n := 0
	r.newID = func() string {
		n++
		return "ex-" + string(rune('0'+n))
	}

	for i := 0; i < 3; i++ {
		if _, err := r.Exchange(context.Background(), Call{URL: "http://example.test"}); err != nil {
			t.Fatalf("Exchange: %v", err)
		}
	}
	got, err := r.History(2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ex-3" || got[1].ID != "ex-2" {
		t.Fatalf("unexpected history %#v", got)
	}
}

func TestWatchRepeatsUntilCancelled(t *testing.T) {
	client := &fakeClient{text: "tick"}
	r := newTestRunner(t, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []domain.Exchange
	err := r.Watch(ctx, Call{URL: "http://example.test"}, 5*time.Millisecond, func(ex domain.Exchange) error {
		seen = append(seen, ex)
		if len(seen) == 3 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(seen))
	}
}

func TestWatchStopsOnOutputError(t *testing.T) {
	r := newTestRunner(t, &fakeClient{text: "x"}, nil)
	stop := errors.New("stdout closed")
	err := r.Watch(context.Background(), Call{URL: "http://example.test"}, time.Millisecond, func(domain.Exchange) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected output error, got %v", err)
	}
	if err := r.Watch(context.Background(), Call{URL: "http://example.test"}, 0, nil); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}

func TestNewFromConfigEndToEnd(t *testing.T) {
	var hooks sync.WaitGroup
	hooks.Add(1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer hooks.Done()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer hook.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	defer page.Close()

	dir := t.TempDir()
	sinksFile := filepath.Join(dir, "sinks.yaml")
	raw := "sinks:\n  - id: hook\n    type: http\n    http:\n      url: " + hook.URL + "\n"
	if err := os.WriteFile(sinksFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write sinks file: %v", err)
	}

	cfg := &config.Config{
		SinksFile:              sinksFile,
		JournalType:            "bbolt",
		JournalPath:            filepath.Join(dir, "journal.db"),
		JournalTTL:             time.Hour,
		JournalCleanupInterval: time.Hour,
	}
	r, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	ex, err := r.Exchange(context.Background(), Call{URL: page.URL, Mode: ModeCallback})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if ex.Status != http.StatusNotFound || ex.Text != "missing" || ex.Failed() {
		t.Fatalf("unexpected exchange %#v", ex)
	}
	hooks.Wait()

	hist, err := r.History(10)
	if err != nil || len(hist) != 1 || !strings.HasPrefix(hist[0].URL, "http://") {
		t.Fatalf("history = %#v, err=%v", hist, err)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeSync {
		t.Fatalf("empty mode = %q, %v", m, err)
	}
	if m, err := ParseMode(" Async-Callback "); err != nil || m != ModeAsyncCallback {
		t.Fatalf("async-callback = %q, %v", m, err)
	}
	if _, err := ParseMode("eventually"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestExchangeReturnsWhenContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	pub := &fakePublisher{}
	r := newTestRunner(t, &fakeClient{text: "late", hang: release}, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Exchange(ctx, Call{URL: "http://example.test"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	hist, err := r.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 0 {
		t.Fatalf("abandoned exchange should not be journaled: %#v", hist)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 0 {
		t.Fatalf("abandoned exchange should not be published: %#v", pub.events)
	}
}

func TestWatchStopsWhileRequestHangs(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := newTestRunner(t, &fakeClient{hang: release}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	errc := make(chan error, 1)
	go func() {
		errc <- r.Watch(ctx, Call{URL: "http://example.test"}, time.Hour, func(domain.Exchange) error {
			t.Errorf("no exchange should be emitted")
			return nil
		})
	}()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch did not return after cancellation")
	}
}

func TestNewRunnerWithoutStoreKeepsNoHistory(t *testing.T) {
	r := NewRunner(&fakeClient{text: "ok"}, nil, nil, nil)
	if _, err := r.Exchange(context.Background(), Call{URL: "http://example.test"}); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	hist, err := r.History(10)
	if err != nil || len(hist) != 0 {
		t.Fatalf("History = %#v, %v", hist, err)
	}
}
