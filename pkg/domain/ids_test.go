package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vetting/pkg/domain-errors"
)

func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseProviderID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseProviderID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseProviderID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseProviderID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ProviderID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
	})
}

// Route parameters reach these parsers unfiltered.
func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE provider_profiles;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocumentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.New().String()
	_, errProvider := ParseProviderID(valid)
	_, errDocument := ParseDocumentID(valid)
	_, errDecision := ParseDecisionID(valid)
	require.NoError(t, errProvider)
	require.NoError(t, errDocument)
	require.NoError(t, errDecision)

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errProvider := ParseProviderID(input)
			_, errDocument := ParseDocumentID(input)
			_, errDecision := ParseDecisionID(input)
			require.Error(t, errProvider)
			require.Error(t, errDocument)
			require.Error(t, errDecision)
		})
	}
}

func TestNewIDsAreNeverNil(t *testing.T) {
	assert.False(t, NewProviderID().IsNil())
	assert.False(t, NewDocumentID().IsNil())
	assert.False(t, NewDecisionID().IsNil())
	assert.True(t, ProviderID{}.IsNil())
}

func TestIDsEncodeAsStrings(t *testing.T) {
	pid := NewProviderID()
	b, err := json.Marshal(struct {
		ProviderID ProviderID `json:"provider_id"`
	}{pid})
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider_id":"`+pid.String()+`"}`, string(b))

	var back struct {
		ProviderID ProviderID `json:"provider_id"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, pid, back.ProviderID)
}
