package models

import "time"

// MailEvent is the compact record of one store mutation published to
// external sinks. Bodies and attachments are never included.
type MailEvent struct {
	EventID   string       `json:"event_id"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
	Mail      *MailSummary `json:"mail,omitempty"`
	Evicted   *MailSummary `json:"evicted,omitempty"`
	// Cleared is the number of mails dropped by a clear.
	Cleared   int               `json:"cleared,omitempty"`
	StoreSize int               `json:"store_size"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type MailSummary struct {
	ID          uint64    `json:"id"`
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	Size        int       `json:"size"`
	Attachments int       `json:"attachments"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Key partitions events by mail so a consumer sees one mail's events in
// order. Clears have no mail and share the empty key.
func (e MailEvent) Key() string {
	if e.Mail == nil {
		return ""
	}
	return formatID(e.Mail.ID)
}
