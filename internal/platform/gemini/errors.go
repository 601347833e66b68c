package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyObjective is returned when task generation is requested
	// without a learning objective.
	ErrEmptyObjective = errors.New("objective cannot be empty")

	// ErrEmptyTaskContent is returned when evaluation is requested without
	// the task content the response answers.
	ErrEmptyTaskContent = errors.New("task content cannot be empty")

	// ErrEmptyResponse is returned when evaluation is requested without a
	// learner response.
	ErrEmptyResponse = errors.New("learner response cannot be empty")

	// ErrEmptyAudio is returned when transcription is requested without
	// audio data.
	ErrEmptyAudio = errors.New("audio data cannot be empty")
)
