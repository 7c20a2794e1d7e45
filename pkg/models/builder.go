package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type MailEventBuilder struct {
	event *MailEvent
}

func NewMailEventBuilder(reason string) *MailEventBuilder {
	return &MailEventBuilder{
		event: &MailEvent{
			EventID:   uuid.New().String(),
			Reason:    reason,
			Timestamp: time.Now().UTC(),
		},
	}
}

func (b *MailEventBuilder) WithMail(m MailSummary) *MailEventBuilder {
	b.event.Mail = &m
	return b
}

func (b *MailEventBuilder) WithEvicted(m MailSummary) *MailEventBuilder {
	b.event.Evicted = &m
	return b
}

func (b *MailEventBuilder) WithCleared(n int) *MailEventBuilder {
	b.event.Cleared = n
	return b
}

func (b *MailEventBuilder) WithStoreSize(n int) *MailEventBuilder {
	b.event.StoreSize = n
	return b
}

func (b *MailEventBuilder) WithMetadata(key, value string) *MailEventBuilder {
	if b.event.Metadata == nil {
		b.event.Metadata = make(map[string]string)
	}
	b.event.Metadata[key] = value
	return b
}

func (b *MailEventBuilder) Build() MailEvent {
	return *b.event
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
