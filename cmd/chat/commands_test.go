package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLocal(t *testing.T) {
	tests := []struct {
		input string
		want  localCommand
		ok    bool
	}{
		{input: ":quit", want: localCommand{name: "quit"}, ok: true},
		{input: ":Provider  ark ", want: localCommand{name: "provider", arg: "ark"}, ok: true},
		{input: ":export /tmp/chat.html", want: localCommand{name: "export", arg: "/tmp/chat.html"}, ok: true},
		{input: "/help", ok: false},
		{input: "hello", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLocal(tt.input)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOrDash(t *testing.T) {
	require.Equal(t, "-", orDash(""))
	require.Equal(t, "m", orDash("m"))
}
