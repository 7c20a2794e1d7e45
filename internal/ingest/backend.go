// Package ingest accepts mail over SMTP and pushes each message into the
// store once it has been read and parsed in full.
package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mailsink/internal/constants"
	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
	"mailsink/pkg/logging"
	"mailsink/pkg/metrics"
	"mailsink/pkg/tracing"
)

var (
	errNotWhitelisted = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 7, 1},
		Message:      "Sender address rejected: not whitelisted",
	}
	errTooManyRecipients = &smtp.SMTPError{
		Code:         452,
		EnhancedCode: smtp.EnhancedCode{4, 5, 3},
		Message:      "Too many recipients",
	}
	errMalformed = &smtp.SMTPError{
		Code:         554,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Message could not be parsed",
	}
	errReadFailed = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Error reading message data",
	}
	errNoSender = &smtp.SMTPError{
		Code:         503,
		EnhancedCode: smtp.EnhancedCode{5, 5, 1},
		Message:      "MAIL FROM required before RCPT",
	}
)

// Pusher is the part of the store ingestion writes to.
type Pusher interface {
	Push(rec mailstore.Record) mailstore.Record
}

type BackendOptions struct {
	Whitelist     *Whitelist
	MaxRecipients int
	Parse         ParseOptions
}

// Backend implements smtp.Backend.
type Backend struct {
	store  Pusher
	opts   BackendOptions
	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewBackend(store Pusher, opts BackendOptions, log logger.Logger) *Backend {
	if opts.Whitelist == nil {
		opts.Whitelist = NewWhitelist(nil)
	}
	return &Backend{
		store:  store,
		opts:   opts,
		logger: log,
		tracer: tracing.GetTracer("mailsink/ingest"),
		now:    time.Now,
	}
}

func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	s := &Session{backend: b, id: uuid.New().String()}
	if c != nil {
		s.helo = c.Hostname()
		if nc := c.Conn(); nc != nil {
			s.remoteAddr = nc.RemoteAddr().String()
		}
	}
	s.ctx = logging.WithSessionID(context.Background(), s.id)
	b.logger.DebugwCtx(s.ctx, "SMTP session opened", "remote_addr", s.remoteAddr)
	return s, nil
}

// Session holds one SMTP transaction at a time.
type Session struct {
	backend    *Backend
	ctx        context.Context
	id         string
	helo       string
	remoteAddr string

	from  string
	hasTx bool
	rcpts []string
}

func (s *Session) Mail(from string, _ *smtp.MailOptions) error {
	if !s.backend.opts.Whitelist.Allows(from) {
		metrics.IncMailsRejected(constants.RejectNotWhitelisted)
		s.backend.logger.InfowCtx(s.ctx, "Rejected sender", "from", from, "remote_addr", s.remoteAddr)
		return errNotWhitelisted
	}

	s.from = from
	s.hasTx = true
	s.rcpts = nil
	return nil
}

func (s *Session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if !s.hasTx {
		return errNoSender
	}
	if limit := s.backend.opts.MaxRecipients; limit > 0 && len(s.rcpts) >= limit {
		metrics.IncMailsRejected(constants.RejectTooManyRcpts)
		return errTooManyRecipients
	}

	s.rcpts = append(s.rcpts, to)
	return nil
}

// Data reads the whole payload before touching the store, so a failed read
// or parse leaves the store unchanged.
func (s *Session) Data(r io.Reader) error {
	start := s.backend.now()
	ctx, span := s.backend.tracer.Start(s.ctx, "smtp.data",
		trace.WithAttributes(
			attribute.String("smtp.session_id", s.id),
			attribute.String("smtp.mail_from", s.from),
			attribute.Int("smtp.rcpt_count", len(s.rcpts)),
		),
	)
	defer span.End()

	raw, err := io.ReadAll(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		metrics.ObserveIngest(time.Since(start), "error")

		if errors.Is(err, smtp.ErrDataTooLarge) {
			metrics.IncMailsRejected(constants.RejectMessageTooLarge)
			s.backend.logger.WarnwCtx(ctx, "Message exceeds size limit", "from", s.from)
			return smtp.ErrDataTooLarge
		}
		metrics.IncMailsRejected(constants.RejectReadFailure)
		s.backend.logger.ErrorwCtx(ctx, "Failed to read message data", "error", err)
		return errReadFailed
	}

	env := mailstore.Envelope{
		MailFrom:   s.from,
		RcptTo:     append([]string(nil), s.rcpts...),
		RemoteAddr: s.remoteAddr,
		Helo:       s.helo,
	}

	rec, err := Parse(raw, env, start, s.backend.opts.Parse)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		metrics.ObserveIngest(time.Since(start), "error")
		metrics.IncMailsRejected(constants.RejectParseFailure)
		s.backend.logger.WarnwCtx(ctx, "Rejected malformed message", "from", s.from, "size", len(raw), "error", err)
		return errMalformed
	}

	stored := s.backend.store.Push(rec)

	metrics.MailsReceivedTotal.Inc()
	metrics.ObserveMailSize(len(raw))
	metrics.ObserveIngest(time.Since(start), "ok")
	span.SetAttributes(attribute.Int64("mail.id", int64(stored.ID)))

	s.backend.logger.InfowCtx(logging.WithEmailID(ctx, stored.ID), "Mail received",
		"from", stored.From,
		"to", stored.To,
		"subject", stored.Subject,
		"size", stored.Size,
		"attachments", len(stored.Attachments),
	)
	return nil
}

func (s *Session) Reset() {
	s.from = ""
	s.hasTx = false
	s.rcpts = nil
}

func (s *Session) Logout() error {
	s.backend.logger.DebugwCtx(s.ctx, "SMTP session closed")
	return nil
}
