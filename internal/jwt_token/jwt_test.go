package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vetting/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")

const reviewerID = "reviewer-7"

func Test_GenerateReviewerToken(t *testing.T) {
	token, err := jwtService.GenerateReviewerToken(reviewerID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, reviewerID, claims.Subject)
	assert.True(t, claims.HasRole(RoleReviewer))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateReviewerToken(reviewerID, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	token, err := NewJWTService("other-key", "test-issuer").GenerateReviewerToken(reviewerID, time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	token, err = NewJWTService("test-signing-key", "someone-else").GenerateReviewerToken(reviewerID, time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_MissingSubject(t *testing.T) {
	token, err := jwtService.GenerateReviewerToken("", time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
