package domain

import "time"

// Exchange is the record of one text request as seen by the runtime:
// what was asked, the text that came back and, for callback calls, the status.
type Exchange struct {
	ID          string        `json:"id"`
	Method      string        `json:"method"`
	URL         string        `json:"url"`
	Mode        string        `json:"mode"`
	ContentType string        `json:"content_type,omitempty"`
	Status      int           `json:"status"`
	HasStatus   bool          `json:"has_status"`
	Text        string        `json:"text"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Failed reports whether the exchange ended without an HTTP response.
func (e Exchange) Failed() bool {
	return e.Error != ""
}
