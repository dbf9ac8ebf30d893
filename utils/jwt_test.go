package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/rfi-processor-be/types"
)

func TestUserTokenRoundTrip(t *testing.T) {
	user := &types.User{
		ID:       "user-1",
		Username: "alice",
		FullName: "Alice Doe",
		Role:     types.USER_ROLE_ADMIN,
	}

	token, err := GenerateUserToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseUserToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, user.FullName, claims.FullName)
	assert.Equal(t, user.Role, claims.Role)
}

func TestParseUserTokenRejectsGarbage(t *testing.T) {
	_, err := ParseUserToken("not-a-token")
	assert.Error(t, err)
}

func TestParseUserTokenRejectsTampering(t *testing.T) {
	token, err := GenerateUserToken(&types.User{ID: "user-1", Username: "alice"})
	require.NoError(t, err)

	_, err = ParseUserToken(token + "x")
	assert.Error(t, err)
}
