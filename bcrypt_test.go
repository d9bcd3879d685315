package sesam_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visdak/sesam"
)

func TestHashPassword(t *testing.T) {
	hash, err := sesam.HashPassword("password12345")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "password12345", hash)

	_, err = sesam.HashPassword("")
	assert.ErrorIs(t, err, sesam.ErrNoEmptyString)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := sesam.HashPassword("password12345")
	require.NoError(t, err)

	assert.NoError(t, sesam.ComparePasswordAndHash("password12345", hash))
	assert.ErrorIs(t, sesam.ComparePasswordAndHash("wrong", hash), sesam.ErrMismatchedHashAndPassword)
}

func TestRandomPasswordHash(t *testing.T) {
	first := sesam.RandomPasswordHash()
	second := sesam.RandomPasswordHash()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
