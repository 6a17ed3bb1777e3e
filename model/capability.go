// Package model provides capability-based model selection. Callers specify
// what kind of work they need (recommendation, reasoning, diagnosis,
// conversation, speech) and the registry resolves that to configured model
// endpoints with fallback chains.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityRecommendation is for large structured generation: crop
	// recommendations, selection plans, pesticide advice.
	CapabilityRecommendation Capability = "recommendation"

	// CapabilityReasoning is for the cross-verification reasoning report
	// produced before a main generation call.
	CapabilityReasoning Capability = "reasoning"

	// CapabilityDiagnosis is for image-based pest and disease diagnosis.
	CapabilityDiagnosis Capability = "diagnosis"

	// CapabilityConversation is for the survey and general chat agents.
	CapabilityConversation Capability = "conversation"

	// CapabilitySpeech is for text-to-speech synthesis.
	CapabilitySpeech Capability = "speech"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityRecommendation, CapabilityReasoning, CapabilityDiagnosis,
		CapabilityConversation, CapabilitySpeech:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for
// invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
