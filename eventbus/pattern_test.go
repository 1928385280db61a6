package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"agent.complete", "agent.complete", true},
		{"agent.complete", "agent.error", false},
		{"agent.*", "agent.complete", true},
		{"agent.*", "agent.complete.extra", false},
		{"agent.*.extra", "agent.complete.extra", true},
		{"*", "agent", true},
		{"*", "agent.complete", false},
		{"*.complete", "agent.complete", true},
		{"transaction.*", "transaction.completed", true},
		{"transaction.*", "user.purchase", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchTopic(tt.pattern, tt.topic),
			"pattern %q vs topic %q", tt.pattern, tt.topic)
	}
}
