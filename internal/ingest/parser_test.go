package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsink/internal/mailstore"
)

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

var receivedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParsePlainMessage(t *testing.T) {
	raw := crlf(
		"Received: from relay1",
		"Received: from relay2",
		"From: Alice <alice@example.com>",
		"To: bob@example.com, Carol <carol@example.org>",
		"Cc: dave@example.net",
		"Subject: Hello there",
		"Date: Tue, 04 Mar 2025 10:00:00 +0000",
		"",
		"Body text.",
		"",
	)
	env := mailstore.Envelope{
		MailFrom: "bounce@example.com",
		RcptTo:   []string{"bob@example.com", "carol@example.org", "dave@example.net", "hidden@example.com"},
	}

	rec, err := Parse(raw, env, receivedAt, ParseOptions{RetainRaw: true})
	require.NoError(t, err)

	assert.Equal(t, "Alice <alice@example.com>", rec.From)
	assert.Equal(t, []string{"bob@example.com", "carol@example.org"}, rec.To)
	assert.Equal(t, []string{"dave@example.net"}, rec.Cc)
	assert.Equal(t, []string{"hidden@example.com"}, rec.Bcc)
	assert.Equal(t, "Hello there", rec.Subject)
	assert.Contains(t, rec.Text, "Body text.")
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), rec.Date.UTC())
	assert.Equal(t, len(raw), rec.Size)
	assert.Equal(t, raw, rec.Raw)
	assert.Equal(t, receivedAt, rec.ReceivedAt)
	assert.Equal(t, env, rec.Envelope)
	assert.Empty(t, rec.Attachments)
}

func TestParseKeepsHeaderOrderAndDuplicates(t *testing.T) {
	raw := crlf(
		"Received: first",
		"From: a@example.com",
		"Received: second",
		"X-Custom: one",
		"X-Custom: two",
		"",
		"body",
	)

	rec, err := Parse(raw, mailstore.Envelope{}, receivedAt, ParseOptions{})
	require.NoError(t, err)

	want := []mailstore.HeaderField{
		{Name: "Received", Value: "first"},
		{Name: "From", Value: "a@example.com"},
		{Name: "Received", Value: "second"},
		{Name: "X-Custom", Value: "one"},
		{Name: "X-Custom", Value: "two"},
	}
	assert.Equal(t, want, rec.Headers)
	assert.Nil(t, rec.Raw)
}

func TestParseFallsBackToEnvelope(t *testing.T) {
	raw := crlf(
		"Subject: no addresses",
		"",
		"body",
	)
	env := mailstore.Envelope{MailFrom: "sender@example.com", RcptTo: []string{"rcpt@example.com"}}

	rec, err := Parse(raw, env, receivedAt, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, "sender@example.com", rec.From)
	assert.Equal(t, []string{"rcpt@example.com"}, rec.To)
	assert.Empty(t, rec.Bcc)
	assert.Equal(t, receivedAt, rec.Date)
}

func TestParseUnparseableDateUsesReceiptTime(t *testing.T) {
	raw := crlf(
		"From: a@example.com",
		"Date: sometime last week",
		"",
		"body",
	)

	rec, err := Parse(raw, mailstore.Envelope{}, receivedAt, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, receivedAt, rec.Date)
}

func TestParseEncodedSubject(t *testing.T) {
	raw := crlf(
		"From: a@example.com",
		"Subject: =?UTF-8?B?SGVsbG8gV8O2cmxk?=",
		"",
		"body",
	)

	rec, err := Parse(raw, mailstore.Envelope{}, receivedAt, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Hello Wörld", rec.Subject)
}

func multipartMessage() []byte {
	return crlf(
		"From: a@example.com",
		"To: b@example.com",
		"Subject: report",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XYZ"`,
		"",
		"--XYZ",
		"Content-Type: multipart/alternative; boundary=\"ALT\"",
		"",
		"--ALT",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain body",
		"--ALT",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html body</p>",
		"--ALT--",
		"--XYZ",
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="numbers.csv"`,
		"",
		"a,b,c",
		"--XYZ--",
		"",
	)
}

func TestParseMultipartWithAttachment(t *testing.T) {
	rec, err := Parse(multipartMessage(), mailstore.Envelope{}, receivedAt, ParseOptions{RetainAttachments: true})
	require.NoError(t, err)

	assert.Contains(t, rec.Text, "plain body")
	assert.Contains(t, rec.HTML, "<p>html body</p>")
	require.Len(t, rec.Attachments, 1)

	att := rec.Attachments[0]
	assert.Equal(t, "numbers.csv", att.Filename)
	assert.Equal(t, "text/csv", att.ContentType)
	assert.Equal(t, "a,b,c", strings.TrimSpace(string(att.Content)))
	assert.Equal(t, len(att.Content), att.Size)
}

func TestParseDropsAttachmentContentUnlessRetained(t *testing.T) {
	rec, err := Parse(multipartMessage(), mailstore.Envelope{}, receivedAt, ParseOptions{})
	require.NoError(t, err)

	require.Len(t, rec.Attachments, 1)
	assert.Nil(t, rec.Attachments[0].Content)
	assert.Positive(t, rec.Attachments[0].Size)
}

func TestParseRejectsMalformedHeader(t *testing.T) {
	raw := crlf(
		"this line has no colon",
		"",
		"body",
	)

	_, err := Parse(raw, mailstore.Envelope{}, receivedAt, ParseOptions{})
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}
