package sinks

import (
	"time"

	"github.com/samvad-hq/webtext/internal/domain"
	"github.com/samvad-hq/webtext/pkg/pagemeta"
)

// Event represents the payload delivered to sinks for one exchange.
type Event struct {
	ExchangeID  string         `json:"exchange_id"`
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	Mode        string         `json:"mode"`
	Status      int            `json:"status"`
	HasStatus   bool           `json:"has_status"`
	Text        string         `json:"text"`
	Error       string         `json:"error,omitempty"`
	Meta        *pagemeta.Meta `json:"meta,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

// NewEvent builds the event for ex. HTML responses get their page metadata attached.
func NewEvent(ex domain.Exchange) Event {
	evt := Event{
		ExchangeID:  ex.ID,
		Method:      ex.Method,
		URL:         ex.URL,
		Mode:        ex.Mode,
		Status:      ex.Status,
		HasStatus:   ex.HasStatus,
		Text:        ex.Text,
		Error:       ex.Error,
		CompletedAt: ex.StartedAt.Add(ex.Duration).UTC(),
	}
	if !ex.Failed() && pagemeta.LooksLikeHTML(ex.Text) {
		if meta, err := pagemeta.Extract([]byte(ex.Text), ex.URL); err == nil && !meta.Empty() {
			evt.Meta = &meta
		}
	}
	return evt
}
