//go:build integration

package integration

import (
	"time"

	"mailsink/internal/config"
	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
)

const (
	containerStartupTimeout = 60
	messageWaitTimeout      = 30 * time.Second
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestForwardingConfig() config.ForwardingConfig {
	return config.ForwardingConfig{
		QueueSize: 64,
		Retry: config.RetryConfig{
			MaxAttempts:     5,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			MaxElapsedTime:  10 * time.Second,
		},
	}
}

func createTestCircuitBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      5 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  10,
	}
}

func createTestRecord(subject, from string, to ...string) mailstore.Record {
	return mailstore.Record{
		From:       from,
		To:         to,
		Subject:    subject,
		Envelope:   mailstore.Envelope{MailFrom: from, RcptTo: to, RemoteAddr: "127.0.0.1:40000"},
		Size:       128,
		ReceivedAt: time.Now().UTC(),
	}
}
