package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQueueWeights(t *testing.T) {
	got := parseQueueWeights(" chat=6, default , low=x,=3,")
	assert.Equal(t, map[string]int{"chat": 6, "default": 1, "low": 1}, got)
	assert.Empty(t, parseQueueWeights(""))
}

func TestParseRedisRejectsEmpty(t *testing.T) {
	_, err := parseRedis("")
	assert.Error(t, err)

	opt, err := parseRedis("redis://localhost:6379/2")
	assert.NoError(t, err)
	assert.NotNil(t, opt)
}
