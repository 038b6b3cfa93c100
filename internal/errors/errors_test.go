package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"validation", NewValidationError("bad", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"network", NewNetworkError("down", nil), ErrorTypeNetwork, http.StatusBadGateway},
		{"processing", NewProcessingError("broken", nil), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{"timeout", NewTimeoutError("slow", nil), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"internal", NewInternalError("oops", nil), ErrorTypeInternal, http.StatusInternalServerError},
		{"not found", NewNotFoundError("gone", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"decode", NewDecodeError("not an image", nil), ErrorTypeDecode, http.StatusUnprocessableEntity},
		{"inference", NewInferenceUnavailableError("no model", nil), ErrorTypeInferenceUnavailable, http.StatusServiceUnavailable},
		{"shape", NewShapeError("3 outputs", nil), ErrorTypeShape, http.StatusInternalServerError},
		{"too large", NewTooLargeError("body", nil), ErrorTypeTooLarge, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.typ {
				t.Errorf("Expected type %s, got %s", tt.typ, tt.err.Type)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, tt.err.StatusCode)
			}
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := NewDecodeError("failed to decode image", cause)

	want := "decode: failed to decode image (caused by: unexpected EOF)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("Expected AppError to unwrap to its cause")
	}

	plain := NewValidationError("no files", nil)
	if plain.Error() != "validation: no files" {
		t.Errorf("Unexpected message without cause: %q", plain.Error())
	}
}

func TestIsTypeAndStatus_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("item 3: %w", NewShapeError("3 outputs", nil))

	if !IsType(wrapped, ErrorTypeShape) {
		t.Error("Expected wrapped AppError to be detected")
	}
	if IsType(wrapped, ErrorTypeDecode) {
		t.Error("Expected type mismatch to be false")
	}
	if GetStatusCode(wrapped) != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", GetStatusCode(wrapped))
	}
	if GetStatusCode(stderrors.New("plain")) != http.StatusInternalServerError {
		t.Error("Expected plain errors to map to 500")
	}
	if GetStatusCode(NewNotFoundError("x", nil)) != http.StatusNotFound {
		t.Error("Expected 404 for not found")
	}
}
