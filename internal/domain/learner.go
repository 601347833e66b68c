package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// DifficultyTier represents a learner's declared proficiency level.
// It controls the complexity of generated task content.
type DifficultyTier string

// Possible difficulty tiers, ordered from easiest to hardest.
const (
	DifficultyBeginner     DifficultyTier = "beginner"
	DifficultyIntermediate DifficultyTier = "intermediate"
	DifficultyAdvanced     DifficultyTier = "advanced"
)

// DefaultLanguage is the response language assigned to new profiles.
const DefaultLanguage = "en"

// Common validation errors for LearnerProfile
var (
	ErrEmptyLearnerID      = errors.New("learner ID cannot be empty")
	ErrInvalidDifficulty   = errors.New("invalid difficulty tier")
	ErrUnsupportedLanguage = errors.New("unsupported language code")
)

// supportedLanguages holds the response-language codes the bot can produce
// instructions and feedback in. Main learning objectives are always English
// regardless of this setting (see GenerationParameters).
var supportedLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true,
	"pt": true, "ru": true, "uk": true, "pl": true, "tr": true,
	"ar": true, "zh": true, "ja": true, "ko": true,
}

// LearnerProfile represents a single learner's declared preferences.
// The ID is the opaque key the transport layer identifies the learner by
// (for Telegram, the chat ID rendered as a string).
//
// Version is the optimistic-concurrency token: every committed update
// increments it, and writers must present the version they read.
type LearnerProfile struct {
	ID         string         `json:"id"`
	Difficulty DifficultyTier `json:"difficulty"`
	Language   string         `json:"language"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Version    int64          `json:"version"`
}

// NewLearnerProfile creates a profile with default preferences
// (intermediate difficulty, English responses) for the given learner key.
// Returns an error if validation fails.
func NewLearnerProfile(id string) (*LearnerProfile, error) {
	now := time.Now().UTC()
	profile := &LearnerProfile{
		ID:         id,
		Difficulty: DifficultyIntermediate,
		Language:   DefaultLanguage,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return profile, nil
}

// Validate checks if the LearnerProfile has valid data.
// Returns an error if any field fails validation.
func (p *LearnerProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyLearnerID
	}

	if !p.Difficulty.Valid() {
		return ErrInvalidDifficulty
	}

	if !IsSupportedLanguage(p.Language) {
		return ErrUnsupportedLanguage
	}

	return nil
}

// SetDifficulty updates the profile's difficulty tier and touches the
// UpdatedAt timestamp. The change applies to tasks issued afterward only;
// pending tasks keep the tier recorded at issue time.
// Returns ErrInvalidDifficulty if the tier is not recognized.
func (p *LearnerProfile) SetDifficulty(tier DifficultyTier) error {
	if !tier.Valid() {
		return ErrInvalidDifficulty
	}

	p.Difficulty = tier
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetLanguage updates the profile's response language and touches the
// UpdatedAt timestamp.
// Returns ErrUnsupportedLanguage if the code is not supported.
func (p *LearnerProfile) SetLanguage(code string) error {
	normalized := NormalizeLanguage(code)
	if !IsSupportedLanguage(normalized) {
		return ErrUnsupportedLanguage
	}

	p.Language = normalized
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Valid reports whether the tier is one of the recognized values.
func (d DifficultyTier) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// ParseDifficultyTier converts learner input into a DifficultyTier,
// accepting any casing and surrounding whitespace.
// Returns ErrInvalidDifficulty for unrecognized input.
func ParseDifficultyTier(s string) (DifficultyTier, error) {
	tier := DifficultyTier(strings.ToLower(strings.TrimSpace(s)))
	if !tier.Valid() {
		return "", ErrInvalidDifficulty
	}
	return tier, nil
}

// NormalizeLanguage lowercases and trims a language code.
func NormalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// IsSupportedLanguage reports whether responses can be produced in the
// given language code. The check expects a normalized code.
func IsSupportedLanguage(code string) bool {
	return supportedLanguages[code]
}

// SupportedLanguages returns the supported response-language codes in
// sorted order, for corrective prompts and documentation.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
