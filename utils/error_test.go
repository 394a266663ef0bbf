package utils

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, "nothing"))
	assert.Nil(t, WrapErrorf(nil, "nothing %d", 1))
}

func TestWrapError_Chain(t *testing.T) {
	base := errors.New("base")

	err := WrapErrorf(WrapError(base, "inner"), "outer %d", 2)
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "outer 2: inner: base", err.Error())
}
