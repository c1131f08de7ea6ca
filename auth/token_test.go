package auth

import (
	"testing"
	"time"

	"careerquiz/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testKeys.Token, time.Hour)
	want := models.SessionContext{Username: "alice", Role: models.RoleStudent}

	token, err := issuer.Issue(want)
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTokenUniqueIDs(t *testing.T) {
	issuer := NewTokenIssuer(testKeys.Token, time.Hour)
	sc := models.SessionContext{Username: "alice", Role: models.RoleStudent}

	t1, err := issuer.Issue(sc)
	require.NoError(t, err)
	t2, err := issuer.Issue(sc)
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer(testKeys.Token, -time.Minute)
	token, err := issuer.Issue(models.SessionContext{Username: "alice", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongKey(t *testing.T) {
	token, err := NewTokenIssuer(testKeys.Token, time.Hour).
		Issue(models.SessionContext{Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("another-key-another-key-another!"), time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsUnknownRoleAndAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer(testKeys.Token, time.Hour)

	bad := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "superuser",
	})
	signed, err := bad.SignedString(testKeys.Token)
	require.NoError(t, err)
	_, err = issuer.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
