package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/generation"
)

// MockGenerator is a mock implementation of generation.Generator.
// The default produces deterministic content naming the objective.
type MockGenerator struct {
	GenerateFn func(ctx context.Context, taskType domain.TaskType, objective string, params domain.GenerationParameters) (*generation.TaskContent, error)

	mu    sync.Mutex
	calls int
}

var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(
	ctx context.Context,
	taskType domain.TaskType,
	objective string,
	params domain.GenerationParameters,
) (*generation.TaskContent, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, taskType, objective, params)
	}
	return &generation.TaskContent{
		TaskType:  taskType,
		Objective: objective,
		Body:      fmt.Sprintf("Practice %s: %s", taskType, objective),
	}, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockCandidateSource is a mock implementation of generation.CandidateSource.
// By default it serves Batches in order, repeating the last batch once the
// queue is drained.
type MockCandidateSource struct {
	CandidatesFn func(ctx context.Context, taskType domain.TaskType, params domain.GenerationParameters, avoid []string, n int) ([]string, error)

	// Batches queues the candidate batches to serve in order.
	Batches [][]string

	mu    sync.Mutex
	calls int
}

var _ generation.CandidateSource = (*MockCandidateSource)(nil)

// Candidates implements generation.CandidateSource.
func (m *MockCandidateSource) Candidates(
	ctx context.Context,
	taskType domain.TaskType,
	params domain.GenerationParameters,
	avoid []string,
	n int,
) ([]string, error) {
	if m.CandidatesFn != nil {
		return m.CandidatesFn(ctx, taskType, params, avoid, n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Batches) == 0 {
		return nil, nil
	}
	idx := m.calls
	if idx >= len(m.Batches) {
		idx = len(m.Batches) - 1
	}
	m.calls++
	return m.Batches[idx], nil
}

// MockEvaluator is a mock implementation of generation.Evaluator.
type MockEvaluator struct {
	EvaluateFn func(ctx context.Context, content *generation.TaskContent, response string, params domain.GenerationParameters) (*generation.Evaluation, error)

	// Score and Feedback are the default evaluation when EvaluateFn is unset.
	Score    float64
	Feedback string

	mu         sync.Mutex
	lastParams domain.GenerationParameters
}

var _ generation.Evaluator = (*MockEvaluator)(nil)

// Evaluate implements generation.Evaluator.
func (m *MockEvaluator) Evaluate(
	ctx context.Context,
	content *generation.TaskContent,
	response string,
	params domain.GenerationParameters,
) (*generation.Evaluation, error) {
	m.mu.Lock()
	m.lastParams = params
	m.mu.Unlock()

	if m.EvaluateFn != nil {
		return m.EvaluateFn(ctx, content, response, params)
	}

	feedback := m.Feedback
	if feedback == "" {
		feedback = "Well done."
	}
	return &generation.Evaluation{Score: m.Score, Feedback: feedback}, nil
}

// LastParams returns the parameters of the most recent Evaluate call, for
// asserting that issue-time snapshots reach evaluation.
func (m *MockEvaluator) LastParams() domain.GenerationParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}

// MockTranscriber is a mock implementation of generation.Transcriber.
type MockTranscriber struct {
	TranscribeFn func(ctx context.Context, audio []byte, mimeType string) (string, error)

	// Text is the default transcription when TranscribeFn is unset.
	Text string
}

var _ generation.Transcriber = (*MockTranscriber)(nil)

// Transcribe implements generation.Transcriber.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, audio, mimeType)
	}
	return m.Text, nil
}
