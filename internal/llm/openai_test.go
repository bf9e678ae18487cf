package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnknownPlace(t *testing.T) {
	tests := []struct {
		reply   string
		unknown bool
	}{
		{"Paris, France", false},
		{"New York, USA", false},
		{"Unknown", true},
		{"unknown location", true},
		{"I cannot determine where this photo was taken.", true},
		{"I'm sorry, but I can't help with that.", true},
		{"I am unable to determine the location.", true},
		{"UNKNOWN", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.unknown, IsUnknownPlace(tt.reply), "reply: %q", tt.reply)
	}
}
