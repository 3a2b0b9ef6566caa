package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	password := "testpassword"
	hashedPassword, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hashedPassword)
	assert.NotEqual(t, password, hashedPassword)
}

func TestCheckPasswordHash(t *testing.T) {
	password := "testpassword"
	hashedPassword, _ := HashPassword(password)

	// Test with correct password
	assert.True(t, CheckPasswordHash(password, hashedPassword))

	// Test with incorrect password
	assert.False(t, CheckPasswordHash("wrongpassword", hashedPassword))
}

func TestCheckPasswordHash_Garbage(t *testing.T) {
	assert.False(t, CheckPasswordHash("password1", "not-a-hash"))
	assert.NotPanics(t, func() { BurnPasswordCheck("password1") })
}
