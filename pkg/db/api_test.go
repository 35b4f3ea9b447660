package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{
			name:   "simple",
			prefix: []byte("ns:kv:"),
			want:   []byte("ns:kv;"),
		},
		{
			name:   "trailing_max_byte",
			prefix: []byte{'a', 0xff},
			want:   []byte{'b'},
		},
		{
			name:   "all_max_bytes",
			prefix: []byte{0xff, 0xff},
			want:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PrefixUpperBound(tc.prefix))
		})
	}
}
