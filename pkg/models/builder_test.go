package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailEventBuilder(t *testing.T) {
	e := NewMailEventBuilder("push").
		WithMail(MailSummary{ID: 42, From: "a@example.com", Subject: "hi"}).
		WithEvicted(MailSummary{ID: 1}).
		WithStoreSize(3).
		WithMetadata("smtp_session", "s-1").
		Build()

	assert.Len(t, e.EventID, 36)
	assert.Equal(t, "push", e.Reason)
	assert.Equal(t, "42", e.Key())
	assert.Equal(t, uint64(1), e.Evicted.ID)
	assert.Equal(t, "s-1", e.Metadata["smtp_session"])
	assert.False(t, e.Timestamp.IsZero())
}

func TestClearEventHasNoMail(t *testing.T) {
	e := NewMailEventBuilder("clear").WithCleared(5).Build()

	assert.Equal(t, "", e.Key())

	body, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotContains(t, decoded, "mail")
	assert.Equal(t, float64(5), decoded["cleared"])
}
