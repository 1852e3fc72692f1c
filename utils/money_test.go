package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 20.5, Round(20.504))
	assert.Equal(t, 20.51, Round(20.506))
	assert.Equal(t, 33.33, Round(33.333333))
	assert.Equal(t, 40.0, Round(2*19.99+0.02))
	assert.Equal(t, 0.0, Round(0))
}

func TestValidAmount(t *testing.T) {
	assert.True(t, ValidAmount(0.01))
	assert.True(t, ValidAmount(20.50))
	assert.True(t, ValidAmount(MaxChargeAmount))

	assert.False(t, ValidAmount(0))
	assert.False(t, ValidAmount(-5))
	assert.False(t, ValidAmount(MaxChargeAmount+0.01))
	assert.False(t, ValidAmount(math.NaN()))
	assert.False(t, ValidAmount(math.Inf(1)))
	assert.False(t, ValidAmount(math.Inf(-1)))
}
