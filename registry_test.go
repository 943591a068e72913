package aioengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"aio"}, r.Names())

	e, err := r.New("aio", DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestRegistryUnknownEngine(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("nvme", DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalidConfig))
}

func TestRegistryRegisterAndReplace(t *testing.T) {
	r := NewRegistry()
	var made int
	r.Register("fake", func(opts Options) (IOEngine, error) {
		made++
		return New(opts), nil
	})
	assert.Equal(t, []string{"aio", "fake"}, r.Names())

	_, err := r.New("fake", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, made)
}
