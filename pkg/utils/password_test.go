package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, CheckPassword("pw123456", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("pw123456", "not-a-hash"))
}
