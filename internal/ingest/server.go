package ingest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/emersion/go-smtp"

	"mailsink/internal/config"
	"mailsink/internal/logger"
)

// Server wraps go-smtp with the sink's configuration and lifecycle.
type Server struct {
	smtp     *smtp.Server
	implicit bool
	logger   logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer builds the SMTP listener. tlsConfig may be nil; when set, TLS is
// offered via STARTTLS or, with cfg.TLS.Implicit, required from the first
// byte.
func NewServer(cfg config.SMTPConfig, backend smtp.Backend, tlsConfig *tls.Config, log logger.Logger) *Server {
	s := smtp.NewServer(backend)
	s.Addr = net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	s.Domain = cfg.Domain
	s.ReadTimeout = cfg.ReadTimeout
	s.WriteTimeout = cfg.WriteTimeout
	s.MaxMessageBytes = cfg.MaxMessageBytes
	s.TLSConfig = tlsConfig
	s.ErrorLog = errorLog{logger: log}

	return &Server{
		smtp:     s,
		implicit: tlsConfig != nil && cfg.TLS.Implicit,
		logger:   log,
	}
}

// ListenAndServe blocks until the server is shut down, in which case it
// returns nil.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.smtp.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.smtp.Addr, err)
	}
	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	if s.implicit {
		l = tls.NewListener(l, s.smtp.TLSConfig)
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.logger.Infow("SMTP server listening", "addr", l.Addr().String(), "implicit_tls", s.implicit, "starttls", s.smtp.TLSConfig != nil && !s.implicit)

	err := s.smtp.Serve(l)
	if errors.Is(err, smtp.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the bound address once Serve has started, or the configured
// address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.smtp.Addr
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.smtp.Shutdown(ctx)
}

// errorLog routes go-smtp's internal errors into zap.
type errorLog struct {
	logger logger.Logger
}

func (l errorLog) Printf(format string, v ...interface{}) {
	l.logger.Warnw("SMTP server error", "error", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l errorLog) Println(v ...interface{}) {
	l.logger.Warnw("SMTP server error", "error", strings.TrimSpace(fmt.Sprintln(v...)))
}
