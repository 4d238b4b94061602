package medication

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusForStock(t *testing.T) {
	tests := []struct {
		stock int
		want  string
	}{
		{-1, StatusOrderRequested},
		{0, StatusOrderRequested},
		{1, StatusLowStock},
		{15, StatusLowStock},
		{19, StatusLowStock},
		{20, StatusInStock},
		{50, StatusInStock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForStock(tt.stock), "stock %d", tt.stock)
	}
}

func TestMedication_LowStock(t *testing.T) {
	assert.True(t, (&Medication{Stock: 19}).LowStock())
	assert.False(t, (&Medication{Stock: 20}).LowStock())
}
