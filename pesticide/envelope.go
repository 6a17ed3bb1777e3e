package pesticide

import (
	"errors"
	"fmt"
)

// ResultType discriminates the generation envelope.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultError   ResultType = "error"
)

// Envelope is the tagged union the diagnosis model returns: a successful
// recommendation or a diagnostic error, never both.
type Envelope struct {
	ResultType ResultType       `json:"result_type"`
	Success    *Recommendation  `json:"success,omitempty"`
	Error      *DiagnosticError `json:"error,omitempty"`
}

// ErrEmptyEnvelope is returned when neither payload is populated.
var ErrEmptyEnvelope = errors.New("envelope has no payload")

// Normalize repairs a missing or wrong discriminator by inferring it from
// which payload is populated, then checks the envelope is a proper sum:
// exactly one payload, matching the tag. Models omit the tag often enough
// that this is an explicit step rather than lenient parsing.
func (e *Envelope) Normalize() error {
	hasSuccess := e.Success != nil
	hasError := e.Error != nil

	if hasSuccess && hasError {
		return fmt.Errorf("envelope has both success and error payloads")
	}
	if !hasSuccess && !hasError {
		return ErrEmptyEnvelope
	}

	if e.ResultType == "" {
		if hasSuccess {
			e.ResultType = ResultSuccess
		} else {
			e.ResultType = ResultError
		}
		return nil
	}

	if e.ResultType == ResultSuccess && !hasSuccess {
		return fmt.Errorf("result_type is %q but success payload is missing", e.ResultType)
	}
	if e.ResultType == ResultError && !hasError {
		return fmt.Errorf("result_type is %q but error payload is missing", e.ResultType)
	}
	if e.ResultType != ResultSuccess && e.ResultType != ResultError {
		return fmt.Errorf("unknown result_type %q", e.ResultType)
	}
	return nil
}
