package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/webtext/internal/config"
	"github.com/samvad-hq/webtext/internal/domain"
	"github.com/samvad-hq/webtext/internal/journal"
	"github.com/samvad-hq/webtext/internal/logger"
	"github.com/samvad-hq/webtext/pkg/sinks"
	"github.com/samvad-hq/webtext/pkg/webtext"
)

// TextClient is the text request surface the runner drives.
type TextClient interface {
	Get(url string) (string, error)
	GetAsync(url string) <-chan webtext.Result
	GetCallback(url string, cb webtext.Callback)
	GetAsyncCallback(url string, cb webtext.Callback) <-chan struct{}
	Post(url, body, contentType string) (string, error)
	PostAsync(url, body, contentType string) <-chan webtext.Result
	PostCallback(url, body string, cb webtext.Callback, contentType string)
	PostAsyncCallback(url, body string, cb webtext.Callback, contentType string) <-chan struct{}
}

// Publisher delivers events to downstream sinks.
type Publisher interface {
	Publish(ctx context.Context, evt sinks.Event) (int, error)
}

// Call describes one request to issue.
type Call struct {
	Method      string
	URL         string
	Body        string
	ContentType string
	Mode        Mode
}

// Runner issues text requests through the client, then journals and
// publishes each completed exchange.
type Runner struct {
	client  TextClient
	store   journal.Store
	publish Publisher
	log     logger.Logger
	now     func() time.Time
	newID   func() string
	closers []func() error
}

// NewRunner wires a runner from its parts. A nil store or publisher disables
// that stage.
func NewRunner(client TextClient, store journal.Store, publish Publisher, log logger.Logger) *Runner {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if store == nil {
		store = journal.Noop()
	}
	return &Runner{
		client:  client,
		store:   store,
		publish: publish,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// New builds a runner from configuration: the text client, the journal
// backend and the sinks listed in cfg.SinksFile.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...webtext.Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := journal.NewStore(cfg.JournalType, cfg.JournalPath, journal.Options{
		TTL:             cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	log.DebugObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"path":                     cfg.JournalPath,
		"ttl_seconds":              int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	client := webtext.New(append([]webtext.Option{webtext.WithLogger(log)}, opts...)...)
	r := NewRunner(client, store, fanout, log)
	r.closers = append(r.closers, fanout.Close, store.Close)
	return r, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*sinks.Fanout, error) {
	if strings.TrimSpace(cfg.SinksFile) == "" {
		return sinks.NewFanout(nil), nil
	}

	reg, err := sinks.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabled := reg.Enabled()
	if secs := int(cfg.HTTPTimeout / time.Second); secs > 0 {
		for i := range enabled {
			if enabled[i].HTTP != nil {
				h := *enabled[i].HTTP
				h.TimeoutSeconds = secs
				enabled[i].HTTP = &h
			}
		}
	}
	built, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, s := range enabled {
		summaries = append(summaries, map[string]string{"id": s.ID, "type": s.Type})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return sinks.NewFanout(built), nil
}

// Close releases the journal and the sinks.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Exchange issues the call through exactly one of the client's operations.
// Plain modes return the transport error; callback modes never fail and
// report transport failures through the exchange text instead. Journal and
// sink failures are logged, not returned.
//
// When ctx is cancelled before the response arrives, Exchange returns
// ctx.Err() at once; the abandoned request is neither journaled nor published.
func (r *Runner) Exchange(ctx context.Context, call Call) (domain.Exchange, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r == nil || r.client == nil {
		return domain.Exchange{}, fmt.Errorf("runner is not initialized")
	}
	call, err := normalizeCall(call)
	if err != nil {
		return domain.Exchange{}, err
	}

	ex := domain.Exchange{
		ID:        r.newID(),
		Method:    call.Method,
		URL:       call.URL,
		Mode:      string(call.Mode),
		StartedAt: r.now().UTC(),
	}
	if call.Method == http.MethodPost {
		ex.ContentType = call.ContentType
		if ex.ContentType == "" {
			ex.ContentType = webtext.DefaultContentType
		}
	}

	type outcome struct {
		ex  domain.Exchange
		err error
	}
	done := make(chan outcome, 1)
	pending := ex
	go func() {
		err := r.dispatch(call, &pending)
		done <- outcome{ex: pending, err: err}
	}()

	var callErr error
	select {
	case <-ctx.Done():
		r.log.WarnObj("exchange abandoned", "exchange_cancelled", map[string]any{
			"exchange_id": ex.ID,
			"url":         ex.URL,
			"reason":      ctx.Err().Error(),
		})
		return ex, ctx.Err()
	case res := <-done:
		ex, callErr = res.ex, res.err
	}
	ex.Duration = r.now().Sub(ex.StartedAt)

	r.record(ex)
	r.publishEvent(ctx, ex)

	if callErr != nil {
		return ex, callErr
	}
	return ex, nil
}

func (r *Runner) dispatch(call Call, ex *domain.Exchange) error {
	cb := func(text string, status int) {
		ex.Text = text
		ex.Status = status
		ex.HasStatus = true
		if status == 0 && strings.HasPrefix(text, webtext.ErrorPrefix) {
			ex.Error = text
		}
	}

	var (
		text string
		err  error
	)
	get := call.Method == http.MethodGet
	switch call.Mode {
	case ModeSync:
		if get {
			text, err = r.client.Get(call.URL)
		} else {
			text, err = r.client.Post(call.URL, call.Body, call.ContentType)
		}
	case ModeAsync:
		var ch <-chan webtext.Result
		if get {
			ch = r.client.GetAsync(call.URL)
		} else {
			ch = r.client.PostAsync(call.URL, call.Body, call.ContentType)
		}
		res := <-ch
		text, err = res.Text, res.Err
	case ModeCallback:
		if get {
			r.client.GetCallback(call.URL, cb)
		} else {
			r.client.PostCallback(call.URL, call.Body, cb, call.ContentType)
		}
		return nil
	case ModeAsyncCallback:
		if get {
			<-r.client.GetAsyncCallback(call.URL, cb)
		} else {
			<-r.client.PostAsyncCallback(call.URL, call.Body, cb, call.ContentType)
		}
		return nil
	}

	if err != nil {
		ex.Error = err.Error()
		return err
	}
	ex.Text = text
	return nil
}

func normalizeCall(call Call) (Call, error) {
	call.Method = strings.ToUpper(strings.TrimSpace(call.Method))
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	if call.Method != http.MethodGet && call.Method != http.MethodPost {
		return Call{}, fmt.Errorf("unsupported method %q", call.Method)
	}
	call.URL = strings.TrimSpace(call.URL)
	if call.URL == "" {
		return Call{}, fmt.Errorf("url is required")
	}
	mode, err := ParseMode(string(call.Mode))
	if err != nil {
		return Call{}, err
	}
	call.Mode = mode
	return call, nil
}

func (r *Runner) record(ex domain.Exchange) {
	if err := r.store.Record(ex); err != nil {
		r.log.WarnObj("journal record failed", "journal_error", map[string]any{
			"exchange_id": ex.ID,
			"error":       err.Error(),
		})
	}
}

func (r *Runner) publishEvent(ctx context.Context, ex domain.Exchange) {
	if r.publish == nil {
		return
	}
	delivered, err := r.publish.Publish(ctx, sinks.NewEvent(ex))
	if err != nil {
		r.log.WarnObj("sink delivery failed", "sink_error", map[string]any{
			"exchange_id": ex.ID,
			"delivered":   delivered,
			"error":       err.Error(),
		})
		return
	}
	if delivered > 0 {
		r.log.DebugObj("exchange published", "sink_delivery", map[string]any{
			"exchange_id": ex.ID,
			"delivered":   delivered,
		})
	}
}

// History returns up to limit journaled exchanges, newest first.
func (r *Runner) History(limit int) ([]domain.Exchange, error) {
	if r == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}
	out, err := r.store.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}
