package validation

import (
	"errors"
	"testing"

	apperrors "go-produce-inspector/internal/errors"
)

func appErrorMessage(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	return appErr.Message
}

func TestValidateImageURL(t *testing.T) {
	validator := NewURLValidator(0)

	tests := []struct {
		url     string
		wantMsg string
	}{
		{"http://example.com/apple.jpg", ""},
		{"https://cdn.example.com/path/to/pear.png", ""},
		{"http://192.168.1.1/tomato.webp", ""},
		{"", "URL cannot be empty"},
		{"   ", "URL cannot be empty"},
		{"\t\n", "URL cannot be empty"},
		{"ftp://example.com/image.jpg", "URL scheme not allowed"},
		{"file://local/path/image.jpg", "URL scheme not allowed"},
		{"not-a-url", "URL scheme not allowed"},
		{"http://", "URL must have a valid host"},
		{"http:///path", "URL must have a valid host"},
		{"://missing-scheme", "Invalid URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validator.ValidateImageURL(tt.url)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected %q to pass, got: %v", tt.url, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected %q to fail", tt.url)
			}
			if got := appErrorMessage(t, err); got != tt.wantMsg {
				t.Errorf("Expected %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestValidateImageURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"example.com", "trusted.com"}, 0)

	if err := validator.ValidateImageURL("https://trusted.com/image.png"); err != nil {
		t.Errorf("Expected allowed host to pass, got: %v", err)
	}
	if err := validator.ValidateImageURL("https://example.com:8443/image.png"); err != nil {
		t.Errorf("Expected port to be ignored for host match, got: %v", err)
	}

	err := validator.ValidateImageURL("https://malicious.com/image.jpg")
	if err == nil {
		t.Fatal("Expected disallowed host to fail")
	}
	if got := appErrorMessage(t, err); got != "URL host not allowed" {
		t.Errorf("Expected 'URL host not allowed', got %q", got)
	}

	err = validator.ValidateImageURL("http://example.com/image.jpg")
	if got := appErrorMessage(t, err); got != "URL scheme not allowed" {
		t.Errorf("Expected 'URL scheme not allowed', got %q", got)
	}
}

func TestValidateURLs(t *testing.T) {
	validator := NewURLValidator(2)

	if err := validator.ValidateURLs([]string{"http://a.com/1.jpg", "http://b.com/2.jpg"}); err != nil {
		t.Errorf("Expected two URLs to pass, got: %v", err)
	}

	err := validator.ValidateURLs(nil)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for empty list, got: %v", err)
	}

	err = validator.ValidateURLs([]string{"http://a.com", "http://b.com", "http://c.com"})
	if got := appErrorMessage(t, err); got != "Too many URLs (max 2)" {
		t.Errorf("Unexpected message %q", got)
	}

	err = validator.ValidateURLs([]string{"http://a.com/1.jpg", "ftp://b.com/2.jpg"})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected wrapped validation error, got: %v", err)
	}
}
