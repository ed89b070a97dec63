package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInternal, cause, "failed to read")

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInternal,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeInternal,
			expected: true,
		},
		{
			name:     "typed layout error",
			err:      &LayoutError{Width: 0, Height: 10},
			code:     ErrCodeInvalidLayout,
			expected: true,
		},
		{
			name:     "typed error behind fmt wrapping",
			err:      fmt.Errorf("build: %w", &EmptyHierarchyError{Date: "2024-01-02"}),
			code:     ErrCodeEmptyHierarchy,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeInvalidMaturity, "test"), ErrCodeInvalidMaturity},
		{"invalid data", &InvalidDataError{Row: 3, Field: "Weight"}, ErrCodeInvalidData},
		{"empty hierarchy", &EmptyHierarchyError{}, ErrCodeEmptyHierarchy},
		{"encoding", &EncodingError{ID: "AAPL"}, ErrCodeEncoding},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPipelineErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid data with ticker",
			err:  &InvalidDataError{Row: 2, Ticker: "XYZ", Field: "Weight", Reason: "not a number"},
			want: "invalid data: row 2 (XYZ): Weight: not a number",
		},
		{
			name: "invalid data without ticker",
			err:  &InvalidDataError{Row: 0, Field: "Ticker", Reason: "empty"},
			want: "invalid data: row 0: Ticker: empty",
		},
		{
			name: "empty hierarchy with selection",
			err:  &EmptyHierarchyError{Date: "2024-01-02", Maturity: "Daily"},
			want: "empty hierarchy: no data for 2024-01-02 (Daily)",
		},
		{
			name: "empty hierarchy bare",
			err:  &EmptyHierarchyError{},
			want: "empty hierarchy: no sector groups",
		},
		{
			name: "layout",
			err:  &LayoutError{Width: 0, Height: 600},
			want: "invalid layout bounds: 0x600 (width and height must be positive)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypedErrorsAs(t *testing.T) {
	err := fmt.Errorf("layout: %w", &LayoutError{Width: -1, Height: 5})

	var le *LayoutError
	if !errors.As(err, &le) {
		t.Fatal("errors.As should find *LayoutError")
	}
	if le.Width != -1 {
		t.Errorf("Width = %v, want -1", le.Width)
	}
}
