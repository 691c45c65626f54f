package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommonPrefixLen(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want int
	}{
		{"identical", Position{1, 2, 3}, Position{1, 2, 3}, 3},
		{"disjoint", Position{0}, Position{4}, 0},
		{"partial", Position{1, 2, 5}, Position{1, 2, 9}, 2},
		{"prefix", Position{1, 2}, Position{1, 2, 3}, 2},
		{"flat offsets", Position{7}, Position{7}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommonPrefixLen(tt.a, tt.b))
			assert.Equal(t, tt.want, CommonPrefixLen(tt.b, tt.a))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want int
	}{
		{"equal", Position{1, 2}, Position{1, 2}, 0},
		{"less by index", Position{1, 2}, Position{1, 3}, -1},
		{"greater by index", Position{2}, Position{1, 9}, 1},
		{"prefix sorts first", Position{1}, Position{1, 0}, -1},
		{"flat offsets", Position{3}, Position{5}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}

func TestIsPrefix(t *testing.T) {
	assert.True(t, IsPrefix(Position{1, 2}, Position{1, 2, 3}))
	assert.True(t, IsPrefix(Position{1, 2}, Position{1, 2}))
	assert.False(t, IsPrefix(Position{1, 2, 3}, Position{1, 2}))
	assert.False(t, IsPrefix(Position{1, 3}, Position{1, 2, 3}))
}
