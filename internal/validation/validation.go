package validation

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxInputLength is the maximum allowed length for a single user turn (100K characters)
	MaxInputLength = 100000
)

// ErrInvalid is wrapped by every error returned from this package.
var ErrInvalid = errors.New("invalid value")

// ValidateAPIKey rejects blank keys. The key shape is not checked: OpenRouter
// issues several key formats and the server is the authority.
func ValidateAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalid)
	}
	return nil
}

// ValidateModel checks a model identifier such as "openai/gpt-4o".
func ValidateModel(model string) error {
	if model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalid)
	}
	if strings.ContainsAny(model, " \t\n\r") {
		return fmt.Errorf("%w: model %q contains whitespace", ErrInvalid, model)
	}
	return nil
}

// ValidateTemperature accepts values in [0, 1].
func ValidateTemperature(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: temperature must be between 0 and 1, got %g", ErrInvalid, t)
	}
	return nil
}

// ValidateTopP accepts values in (0, 1].
func ValidateTopP(p float64) error {
	if p <= 0 || p > 1 {
		return fmt.Errorf("%w: top_p must be in (0, 1], got %g", ErrInvalid, p)
	}
	return nil
}

// ValidateMaxTokens accepts positive token budgets.
func ValidateMaxTokens(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalid, n)
	}
	return nil
}

// ValidateTextInput validates a user turn before it is sent
func ValidateTextInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message cannot be empty", ErrInvalid)
	}
	if len(text) > MaxInputLength {
		return fmt.Errorf("%w: message exceeds maximum length of %d characters (got %d)", ErrInvalid, MaxInputLength, len(text))
	}
	return nil
}
