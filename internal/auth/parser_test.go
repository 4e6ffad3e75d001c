package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	p := NewParser("secret")
	raw, err := p.Sign(Claims{
		Role: "analyst",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	claims, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "analyst", claims.Role)
}

func TestParseRejects(t *testing.T) {
	p := NewParser("secret")

	expired, err := p.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)

	foreign, err := NewParser("other").Sign(Claims{})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"alg none":     unsigned,
		"garbage":      "not-a-token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestEnabled(t *testing.T) {
	assert.True(t, NewParser("secret").Enabled())
	assert.False(t, NewParser("").Enabled())

	var p *Parser
	assert.False(t, p.Enabled())
}
