package audit

import "time"

// CallRecord is one persisted tool call. It never holds request arguments
// or remote payloads.
type CallRecord struct {
	ID        string        `json:"id"`
	Tool      string        `json:"tool"`
	ProductID string        `json:"product_id"`
	Outcome   string        `json:"outcome"`
	Cause     string        `json:"cause,omitempty"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// DurationMS is Duration in milliseconds, as stored.
func (c CallRecord) DurationMS() int64 { return c.Duration.Milliseconds() }
