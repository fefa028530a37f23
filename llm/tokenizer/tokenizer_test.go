package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCounter(t *testing.T) {
	c := EstimateCounter{}

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short ascii rounds up", "ab", 1},
		{"ascii", "hello world, data", 4},
		{"cjk per rune", "二叉树遍历", 5},
		{"mixed", "BST平衡", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := c.CountTokens(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestEstimateCounter_NeverZeroForNonEmpty(t *testing.T) {
	c := EstimateCounter{}
	n, err := c.CountTokens("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewTiktokenCounter_DefaultsModel(t *testing.T) {
	c := NewTiktokenCounter("")
	assert.Equal(t, "gpt-3.5-turbo", c.model)
}
