package broker

import (
	"context"

	"mailsink/pkg/models"
)

// Publisher delivers mail events to one external sink.
type Publisher interface {
	Publish(ctx context.Context, event models.MailEvent) error
	// Name identifies the sink in logs and metrics.
	Name() string
	Close() error
}
