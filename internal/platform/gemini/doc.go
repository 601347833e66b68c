// Package gemini implements the generation interfaces on top of Google's
// Gemini API.
//
// A single Client satisfies all four ports: generation.Generator for task
// content, generation.CandidateSource for objective suggestions,
// generation.Evaluator for judging learner responses, and
// generation.Transcriber for voice messages. Callers depend only on those
// interfaces; nothing of the API surface leaks into the core.
//
// Prompts are text/template constants, one per task type, rendered with the
// difficulty descriptors and languages resolved at issue time. Replies use
// line protocols rather than structured output: candidate lists arrive as
// "ITEM:" lines and evaluations as a "SCORE:" line followed by a "FEEDBACK:"
// line, both parsed tolerantly.
//
// Every call runs under the configured timeout and is retried with jittered
// exponential backoff when the failure is transient (rate limits, 5xx
// responses, timeouts). Blocked content, unparseable replies, and other
// 4xx-class failures are permanent and surface immediately, wrapped in the
// generation package's error taxonomy.
package gemini
