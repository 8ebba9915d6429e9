// Package models defines the shared data shapes for serviceflow: conversation
// states, knowledge records, devices, bookings and ranked solution candidates.
package models

// ConversationState identifies a stage of the guided support dialogue.
type ConversationState string

// Conversation state constants.
const (
	StateWelcome             ConversationState = "welcome"
	StateGDPR                ConversationState = "gdpr"
	StateDeviceVerification  ConversationState = "device_verification"
	StateIssueAnalysis       ConversationState = "issue_analysis"
	StateCheckResolution     ConversationState = "check_resolution"
	StateIssueReported       ConversationState = "issue_reported"
	StateServiceScheduling   ConversationState = "service_scheduling"
	StateCollectCustomerInfo ConversationState = "collect_customer_info"
	StateConfirmation        ConversationState = "confirmation"
	StateEnd                 ConversationState = "end"
)

// AllStates lists every conversation state, in dialogue order.
var AllStates = []ConversationState{
	StateWelcome,
	StateGDPR,
	StateDeviceVerification,
	StateIssueAnalysis,
	StateCheckResolution,
	StateIssueReported,
	StateServiceScheduling,
	StateCollectCustomerInfo,
	StateConfirmation,
	StateEnd,
}

// ValidTransitions maps each state to the set of states directly reachable
// from it. END transitions back to WELCOME so a finished conversation can be
// restarted in place.
var ValidTransitions = map[ConversationState][]ConversationState{
	StateWelcome:             {StateDeviceVerification},
	StateGDPR:                {StateDeviceVerification, StateEnd},
	StateDeviceVerification:  {StateIssueAnalysis, StateGDPR},
	StateIssueAnalysis:       {StateCheckResolution, StateIssueReported},
	StateCheckResolution:     {StateEnd, StateIssueReported},
	StateIssueReported:       {StateServiceScheduling, StateEnd},
	StateServiceScheduling:   {StateCollectCustomerInfo, StateEnd},
	StateCollectCustomerInfo: {StateConfirmation, StateServiceScheduling},
	StateConfirmation:        {StateEnd, StateServiceScheduling},
	StateEnd:                 {StateWelcome},
}

// CanTransition reports whether target is directly reachable from current.
func CanTransition(current, target ConversationState) bool {
	for _, s := range ValidTransitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// CollectStep identifies which customer field is being collected next.
type CollectStep string

// Customer data collection steps, in their strict order.
const (
	CollectName    CollectStep = "name"
	CollectPhone   CollectStep = "phone"
	CollectEmail   CollectStep = "email"
	CollectAddress CollectStep = "address"
)
