package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistrictMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact", "Shimla", "Shimla", true},
		{"case and suffix", "SHIMLA District", "shimla", true},
		{"office suffix with punctuation", "Kullu (Office)", "kullu.", true},
		{"division suffix", "Mandi Division", "Mandi", true},
		{"token subset", "Lahaul and Spiti", "Lahaul Spiti District", true},
		{"different districts", "Kangra", "Chamba", false},
		{"empty actor", "", "Shimla", false},
		{"only suffix", "District", "Shimla", false},
		{"partial token is not a match", "Shim", "Shimla", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DistrictMatches(tt.a, tt.b))
		})
	}
}
