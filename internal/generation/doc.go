// Package generation defines the ports the application core consumes for
// AI-backed content work: generating task content, proposing candidate
// objectives, evaluating learner responses, and transcribing voice messages.
// It abstracts the details of LLM API integration (Gemini), so the selection
// and lifecycle logic never couples to a specific external service.
package generation
