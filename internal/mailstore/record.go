package mailstore

import (
	"strings"
	"time"
)

// Record is one accepted mail. A Record is never modified once the Store has
// assigned its ID; callers must treat every slice it holds as read-only.
type Record struct {
	ID          uint64        `json:"id"`
	From        string        `json:"from"`
	To          []string      `json:"to"`
	Cc          []string      `json:"cc,omitempty"`
	Bcc         []string      `json:"bcc,omitempty"`
	Subject     string        `json:"subject"`
	Text        string        `json:"text,omitempty"`
	HTML        string        `json:"html,omitempty"`
	Date        time.Time     `json:"date"`
	Headers     []HeaderField `json:"headers"`
	Attachments []Attachment  `json:"attachments"`
	Envelope    Envelope      `json:"envelope"`
	Size        int           `json:"size"`
	ReceivedAt  time.Time     `json:"received_at"`

	Raw []byte `json:"-"`
}

// HeaderField keeps header order and duplicates exactly as parsed.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`

	Content []byte `json:"-"`
}

// Envelope is the SMTP transaction data that accompanied the message.
type Envelope struct {
	MailFrom   string   `json:"mail_from"`
	RcptTo     []string `json:"rcpt_to"`
	RemoteAddr string   `json:"remote_addr,omitempty"`
	Helo       string   `json:"helo,omitempty"`
}

// ToLine renders the recipient list the way it is matched by the "to" filter.
func (r Record) ToLine() string {
	return strings.Join(r.To, ", ")
}
