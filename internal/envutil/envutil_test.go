package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Setenv("LITTER_TEST_STRING", "hello")
	assert.Equal(t, "hello", String("LITTER_TEST_STRING", "default"))
	assert.Equal(t, "default", String("LITTER_TEST_STRING_UNSET", "default"))
}

func TestBool(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		v, err := Bool("LITTER_TEST_BOOL_UNSET", true)
		assert.NoError(t, err)
		assert.True(t, v)
	})
	t.Run("valid", func(t *testing.T) {
		t.Setenv("LITTER_TEST_BOOL", "0")
		v, err := Bool("LITTER_TEST_BOOL", true)
		assert.NoError(t, err)
		assert.False(t, v)
	})
	t.Run("invalid", func(t *testing.T) {
		t.Setenv("LITTER_TEST_BOOL", "maybe")
		v, err := Bool("LITTER_TEST_BOOL", true)
		assert.Error(t, err)
		assert.True(t, v)
	})
}

func TestFloat64(t *testing.T) {
	t.Setenv("LITTER_TEST_FLOAT", "0.5")
	v, err := Float64("LITTER_TEST_FLOAT", 0.95)
	assert.NoError(t, err)
	assert.Equal(t, 0.5, v)

	t.Setenv("LITTER_TEST_FLOAT", "not-a-float")
	_, err = Float64("LITTER_TEST_FLOAT", 0.95)
	assert.Error(t, err)
}

func TestUint32(t *testing.T) {
	t.Setenv("LITTER_TEST_UINT32", "20")
	v, err := Uint32("LITTER_TEST_UINT32", 1)
	assert.NoError(t, err)
	assert.Equal(t, uint32(20), v)

	t.Setenv("LITTER_TEST_UINT32", "-1")
	_, err = Uint32("LITTER_TEST_UINT32", 1)
	assert.Error(t, err)
}

func TestUint64(t *testing.T) {
	t.Setenv("LITTER_TEST_UINT64", "123456789012")
	v, err := Uint64("LITTER_TEST_UINT64", 1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(123456789012), v)
}
