package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitelistAllows(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		sender  string
		want    bool
	}{
		{name: "empty accepts all", entries: nil, sender: "anyone@anywhere.test", want: true},
		{name: "empty accepts null sender", entries: nil, sender: "", want: true},
		{name: "exact match", entries: []string{"alice@example.com"}, sender: "alice@example.com", want: true},
		{name: "exact match case-insensitive", entries: []string{"Alice@Example.com"}, sender: "ALICE@example.COM", want: true},
		{name: "exact mismatch", entries: []string{"alice@example.com"}, sender: "bob@example.com", want: false},
		{name: "domain suffix", entries: []string{"@example.org"}, sender: "carol@example.org", want: true},
		{name: "domain suffix is not substring", entries: []string{"@example.org"}, sender: "carol@badexample.org.evil", want: false},
		{name: "domain without at does not match lookalike", entries: []string{"@example.org"}, sender: "carol@notexample.org", want: false},
		{name: "null sender rejected when restricted", entries: []string{"@example.org"}, sender: "", want: false},
		{name: "blank entries ignored", entries: []string{" ", ""}, sender: "x@y.z", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewWhitelist(tt.entries).Allows(tt.sender))
		})
	}
}

func TestWhitelistEntries(t *testing.T) {
	w := NewWhitelist([]string{"z@b.c", "@Example.org", "A@b.c"})
	assert.Equal(t, []string{"@example.org", "a@b.c", "z@b.c"}, w.Entries())
}
