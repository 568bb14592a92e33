package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateToken("user-1", "restaurant")
	require.NoError(t, err)

	claims, err := auth.FromHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "restaurant", claims.Role)
}

func TestFromHeaderRejectsMissingAndTampered(t *testing.T) {
	_, err := auth.FromHeader("")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = auth.FromHeader("Token abc")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	token, err := auth.GenerateToken("user-1", "user")
	require.NoError(t, err)
	_, err = auth.FromHeader("Bearer " + token + "x")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "hunter22"))
	assert.False(t, auth.CheckPassword(hash, "hunter23"))
}
