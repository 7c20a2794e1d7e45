package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
)

func newTestSession(t *testing.T, opts BackendOptions) (*Session, *mailstore.Store) {
	t.Helper()
	store, err := mailstore.New(10)
	require.NoError(t, err)

	sess, err := NewBackend(store, opts, logger.NopLogger()).NewSession(nil)
	require.NoError(t, err)
	return sess.(*Session), store
}

func smtpCode(t *testing.T, err error) int {
	t.Helper()
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr), "expected *smtp.SMTPError, got %v", err)
	return smtpErr.Code
}

const simpleMessage = "From: a@example.com\r\nTo: b@example.com\r\nSubject: hi\r\n\r\nhello\r\n"

func TestSessionStoresMessage(t *testing.T) {
	sess, store := newTestSession(t, BackendOptions{})

	require.NoError(t, sess.Mail("a@example.com", nil))
	require.NoError(t, sess.Rcpt("b@example.com", nil))
	require.NoError(t, sess.Rcpt("c@example.com", nil))
	require.NoError(t, sess.Data(strings.NewReader(simpleMessage)))

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(1), snap[0].ID)
	assert.Equal(t, "hi", snap[0].Subject)
	assert.Equal(t, "a@example.com", snap[0].Envelope.MailFrom)
	assert.Equal(t, []string{"b@example.com", "c@example.com"}, snap[0].Envelope.RcptTo)
	assert.Equal(t, []string{"c@example.com"}, snap[0].Bcc)
}

func TestSessionRejectsSenderOutsideWhitelist(t *testing.T) {
	sess, store := newTestSession(t, BackendOptions{Whitelist: NewWhitelist([]string{"@example.org"})})

	err := sess.Mail("intruder@example.com", nil)
	assert.Equal(t, 550, smtpCode(t, err))

	// No transaction was opened.
	assert.Equal(t, 503, smtpCode(t, sess.Rcpt("b@example.org", nil)))

	require.NoError(t, sess.Mail("friend@example.org", nil))
	require.NoError(t, sess.Rcpt("b@example.org", nil))
	require.NoError(t, sess.Data(strings.NewReader(simpleMessage)))
	assert.Equal(t, 1, store.Size())
}

func TestSessionLimitsRecipients(t *testing.T) {
	sess, _ := newTestSession(t, BackendOptions{MaxRecipients: 2})

	require.NoError(t, sess.Mail("a@example.com", nil))
	require.NoError(t, sess.Rcpt("1@example.com", nil))
	require.NoError(t, sess.Rcpt("2@example.com", nil))
	assert.Equal(t, 452, smtpCode(t, sess.Rcpt("3@example.com", nil)))
}

func TestSessionRejectsMalformedMessage(t *testing.T) {
	sess, store := newTestSession(t, BackendOptions{})

	require.NoError(t, sess.Mail("a@example.com", nil))
	require.NoError(t, sess.Rcpt("b@example.com", nil))

	err := sess.Data(strings.NewReader("garbage without header separator\r\n\r\nbody"))
	assert.Equal(t, 554, smtpCode(t, err))
	assert.Equal(t, 0, store.Size())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSessionReadFailureLeavesStoreUntouched(t *testing.T) {
	sess, store := newTestSession(t, BackendOptions{})

	require.NoError(t, sess.Mail("a@example.com", nil))
	require.NoError(t, sess.Rcpt("b@example.com", nil))

	err := sess.Data(failingReader{})
	assert.Equal(t, 451, smtpCode(t, err))
	assert.Equal(t, 0, store.Size())
}

func TestSessionResetClearsTransaction(t *testing.T) {
	sess, store := newTestSession(t, BackendOptions{})

	require.NoError(t, sess.Mail("a@example.com", nil))
	require.NoError(t, sess.Rcpt("b@example.com", nil))
	sess.Reset()

	assert.Equal(t, 503, smtpCode(t, sess.Rcpt("b@example.com", nil)))

	require.NoError(t, sess.Mail("z@example.com", nil))
	require.NoError(t, sess.Rcpt("y@example.com", nil))
	require.NoError(t, sess.Data(bytes.NewReader([]byte(simpleMessage))))
	assert.Equal(t, []string{"y@example.com"}, store.Snapshot()[0].Envelope.RcptTo)
	assert.NoError(t, sess.Logout())
}
