package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"

	"mailsink/internal/mailstore"
)

type ParseOptions struct {
	RetainRaw         bool
	RetainAttachments bool
}

// ParseError means the payload is not a usable RFC 5322 message.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse turns a raw DATA payload into a Record. Header fields keep their
// order and duplicates; From, To and Cc fall back to the SMTP envelope when
// the message omits them, and Bcc holds envelope recipients that appear in
// neither.
func Parse(raw []byte, env mailstore.Envelope, receivedAt time.Time, opts ParseOptions) (mailstore.Record, error) {
	hdr, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return mailstore.Record{}, &ParseError{Err: err}
	}

	msg, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return mailstore.Record{}, &ParseError{Err: err}
	}

	rec := mailstore.Record{
		From:       msg.GetHeader("From"),
		Subject:    msg.GetHeader("Subject"),
		Text:       msg.Text,
		HTML:       msg.HTML,
		Headers:    orderedHeaders(hdr),
		Envelope:   env,
		Size:       len(raw),
		ReceivedAt: receivedAt,
		Date:       receivedAt,
	}

	if rec.From == "" {
		rec.From = env.MailFrom
	}

	rec.To = addresses(msg, "To")
	if len(rec.To) == 0 {
		rec.To = append([]string(nil), env.RcptTo...)
	}
	rec.Cc = addresses(msg, "Cc")
	rec.Bcc = blindRecipients(env.RcptTo, rec.To, rec.Cc)

	if d, err := mail.ParseDate(msg.GetHeader("Date")); err == nil {
		rec.Date = d
	}

	rec.Attachments = attachments(msg, opts.RetainAttachments)
	if opts.RetainRaw {
		rec.Raw = raw
	}

	return rec, nil
}

func orderedHeaders(hdr textproto.Header) []mailstore.HeaderField {
	fields := hdr.Fields()
	out := make([]mailstore.HeaderField, 0, fields.Len())
	for fields.Next() {
		out = append(out, mailstore.HeaderField{Name: fields.Key(), Value: fields.Value()})
	}
	return out
}

func addresses(msg *enmime.Envelope, header string) []string {
	list, err := msg.AddressList(header)
	if err != nil || len(list) == 0 {
		// Unparseable address headers are kept verbatim.
		if v := strings.TrimSpace(msg.GetHeader(header)); v != "" {
			return []string{v}
		}
		return nil
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

func blindRecipients(rcpts []string, visible ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range visible {
		for _, addr := range list {
			seen[strings.ToLower(addr)] = struct{}{}
		}
	}

	var out []string
	for _, r := range rcpts {
		if _, ok := seen[strings.ToLower(r)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func attachments(msg *enmime.Envelope, keepContent bool) []mailstore.Attachment {
	parts := make([]*enmime.Part, 0, len(msg.Attachments)+len(msg.Inlines))
	parts = append(parts, msg.Attachments...)
	parts = append(parts, msg.Inlines...)

	out := make([]mailstore.Attachment, 0, len(parts))
	for _, p := range parts {
		a := mailstore.Attachment{
			Filename:    p.FileName,
			ContentType: p.ContentType,
			Size:        len(p.Content),
		}
		if keepContent {
			a.Content = p.Content
		}
		out = append(out, a)
	}
	return out
}
