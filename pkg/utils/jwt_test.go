package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	jwtKey = []byte("test-secret")
	userID := uuid.New()

	token, err := CreateToken(userID, "requester")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "requester", claims.Role)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	jwtKey = []byte("test-secret")
	token, err := CreateToken(uuid.New(), "requester")
	require.NoError(t, err)

	jwtKey = []byte("a-different-secret")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	jwtKey = []byte("test-secret")
	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, ComparePasswords(hash, "hunter2"))
	assert.Error(t, ComparePasswords(hash, "hunter3"))
}
