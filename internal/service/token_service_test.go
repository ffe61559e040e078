package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "referral-rewards")

	memberID := uuid.New()
	token, expiry, err := svc.Generate(memberID, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, memberID, claims.MemberID)
	assert.Equal(t, "alice", claims.Username)
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService("secret-a", time.Hour, "referral-rewards")
	other := NewJWTTokenService("secret-b", time.Hour, "referral-rewards")

	token, _, err := svc.Generate(uuid.New(), "bob")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "referral-rewards")

	token, _, err := svc.Generate(uuid.New(), "carol")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_GarbageToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "referral-rewards")

	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}
