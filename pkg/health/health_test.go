package health

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(name string) Checker {
	return CheckFunc{CheckName: name, Fn: func(context.Context) error { return nil }}
}

func failCheck(name string) Checker {
	return CheckFunc{CheckName: name, Fn: func(context.Context) error { return errors.New(name + " down") }}
}

func TestCheckerRegistry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *CheckerRegistry)
		want     Status
		messages map[string]string
	}{
		{
			name:  "no checks",
			setup: func(*CheckerRegistry) {},
			want:  StatusHealthy,
		},
		{
			name: "all healthy",
			setup: func(r *CheckerRegistry) {
				r.Register(okCheck("store"))
				r.RegisterOptional(okCheck("redis"))
			},
			want: StatusHealthy,
		},
		{
			name: "optional failure degrades",
			setup: func(r *CheckerRegistry) {
				r.Register(okCheck("store"))
				r.RegisterOptional(failCheck("redis"))
			},
			want:     StatusDegraded,
			messages: map[string]string{"redis": "redis down"},
		},
		{
			name: "required failure wins",
			setup: func(r *CheckerRegistry) {
				r.RegisterOptional(failCheck("redis"))
				r.Register(failCheck("smtp"))
			},
			want:     StatusUnhealthy,
			messages: map[string]string{"redis": "redis down", "smtp": "smtp down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			tt.setup(r)

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			for name, msg := range tt.messages {
				assert.Equal(t, msg, h.Checks[name].Message)
			}
		})
	}
}

func TestListenerChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	addr := ln.Addr().String()
	assert.NoError(t, NewListenerChecker("smtp", addr).Check(context.Background()))

	require.NoError(t, ln.Close())
	assert.Error(t, NewListenerChecker("smtp", addr).Check(context.Background()))
}
