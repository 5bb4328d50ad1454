package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{name: "openrouter key", apiKey: "sk-or-v1-abc123", wantErr: false},
		{name: "any non-blank shape", apiKey: "k1", wantErr: false},
		{name: "empty", apiKey: "", wantErr: true},
		{name: "whitespace only", apiKey: "  \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.apiKey, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("ValidateAPIKey(%q) error does not wrap ErrInvalid", tt.apiKey)
			}
		})
	}
}

func TestValidateModel(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		wantErr bool
	}{
		{name: "slug", model: "openai/gpt-4o", wantErr: false},
		{name: "empty", model: "", wantErr: true},
		{name: "contains space", model: "openai/gpt 4o", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateModel(tt.model); (err != nil) != tt.wantErr {
				t.Errorf("ValidateModel(%q) error = %v, wantErr %v", tt.model, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGenerationParameters(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "temperature zero", err: ValidateTemperature(0), wantErr: false},
		{name: "temperature one", err: ValidateTemperature(1), wantErr: false},
		{name: "temperature negative", err: ValidateTemperature(-0.1), wantErr: true},
		{name: "temperature above one", err: ValidateTemperature(1.5), wantErr: true},
		{name: "top_p default", err: ValidateTopP(0.95), wantErr: false},
		{name: "top_p zero", err: ValidateTopP(0), wantErr: true},
		{name: "top_p above one", err: ValidateTopP(1.01), wantErr: true},
		{name: "max tokens default", err: ValidateMaxTokens(1000), wantErr: false},
		{name: "max tokens zero", err: ValidateMaxTokens(0), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", tt.err, tt.wantErr)
			}
		})
	}
}

func TestValidateTextInput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
		errMsg  string
	}{
		{name: "valid text", text: "hi", wantErr: false},
		{name: "empty text", text: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "blank text", text: " \n", wantErr: true, errMsg: "cannot be empty"},
		{name: "text at max length", text: strings.Repeat("a", MaxInputLength), wantErr: false},
		{name: "text exceeds max length", text: strings.Repeat("a", MaxInputLength+1), wantErr: true, errMsg: "exceeds maximum length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTextInput(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTextInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidateTextInput() error = %v, want to contain %q", err, tt.errMsg)
			}
		})
	}
}
