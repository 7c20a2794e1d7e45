package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsink/internal/logger"
	"mailsink/pkg/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "mails", logger: logger.NopLogger()}

	event := models.NewMailEventBuilder("push").WithMail(models.MailSummary{ID: 12, Subject: "hi"}).Build()
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "12", string(msg.Key))

	var decoded models.MailEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "hi", decoded.Mail.Subject)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "push", headers["reason"])
	assert.Equal(t, event.EventID, headers["event_id"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}, topic: "mails", logger: logger.NopLogger()}

	err := p.Publish(context.Background(), models.NewMailEventBuilder("clear").Build())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "mails")
}
