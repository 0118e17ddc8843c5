package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, model.RoleFacilityManager, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	actor, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserID: 42, Role: model.RoleFacilityManager}, actor)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejects(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()

	numeric, err := ParseAccessToken("k", sign(jwt.MapClaims{"sub": 7, "role": "admin", "exp": exp}))
	require.NoError(t, err, "numeric subjects are accepted")
	assert.Equal(t, uint64(7), numeric.UserID)

	tests := map[string]jwt.MapClaims{
		"expired":      {"sub": "7", "role": "admin", "exp": time.Now().Add(-time.Minute).Unix()},
		"no exp":       {"sub": "7", "role": "admin"},
		"unknown role": {"sub": "7", "role": "root", "exp": exp},
		"zero subject": {"sub": "0", "role": "admin", "exp": exp},
		"bad subject":  {"sub": "abc", "role": "admin", "exp": exp},
	}
	for name, claims := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken("k", sign(claims))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSecretHashing(t *testing.T) {
	hash, err := HashSecret("svc-key", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifySecret(hash, "svc-key"))
	assert.False(t, VerifySecret(hash, "nope"))
}
