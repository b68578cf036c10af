package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelEncoderIsStable(t *testing.T) {
	le := NewLabelEncoder()
	y, err := le.FitTransform([]string{"web", "cli", "web", "api"})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 2, 0}, y)
	assert.Equal(t, 3, le.NumClasses())

	back, err := le.InverseTransform(y)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "cli", "web", "api"}, back)
}

func TestLabelEncoderErrors(t *testing.T) {
	le := NewLabelEncoder()
	_, err := le.Transform([]string{"a"})
	assert.Error(t, err)

	le.Fit([]string{"a"})
	_, err = le.Transform([]string{"b"})
	assert.Error(t, err)
	_, err = le.InverseTransform([]int{5})
	assert.Error(t, err)
}
