package dataaccess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextTicketNumber(t *testing.T) {
	tests := []struct {
		name    string
		highest int
		want    int
	}{
		{
			name:    "FirstEver",
			highest: 1000,
			want:    1001,
		},
		{
			name:    "EmptyStore",
			highest: 0,
			want:    1001,
		},
		{
			name:    "Subsequent",
			highest: 1042,
			want:    1043,
		},
		{
			name:    "NeverBelowSeed",
			highest: 7,
			want:    1001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, nextTicketNumber(tt.highest))
		})
	}
}
