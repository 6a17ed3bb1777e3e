package pesticide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInfersMissingDiscriminator(t *testing.T) {
	success := &Envelope{Success: &Recommendation{DiseaseDetails: "leaf blast"}}
	require.NoError(t, success.Normalize())
	assert.Equal(t, ResultSuccess, success.ResultType)

	failure := &Envelope{Error: &DiagnosticError{Reason: "image too blurry"}}
	require.NoError(t, failure.Normalize())
	assert.Equal(t, ResultError, failure.ResultType)
}

func TestNormalizeAcceptsMatchingTag(t *testing.T) {
	env := &Envelope{ResultType: ResultSuccess, Success: &Recommendation{}}
	require.NoError(t, env.Normalize())
	assert.Equal(t, ResultSuccess, env.ResultType)
}

func TestNormalizeRejectsEmptyEnvelope(t *testing.T) {
	err := (&Envelope{}).Normalize()
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestNormalizeRejectsBothPayloads(t *testing.T) {
	env := &Envelope{
		Success: &Recommendation{},
		Error:   &DiagnosticError{},
	}
	err := env.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both")
}

func TestNormalizeRejectsMismatchedTag(t *testing.T) {
	env := &Envelope{ResultType: ResultSuccess, Error: &DiagnosticError{}}
	require.Error(t, env.Normalize())

	env = &Envelope{ResultType: ResultError, Success: &Recommendation{}}
	require.Error(t, env.Normalize())

	env = &Envelope{ResultType: "partial", Success: &Recommendation{}}
	err := env.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown result_type")
}
