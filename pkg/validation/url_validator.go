package validation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	apperrors "go-produce-inspector/internal/errors"
)

// URLValidator checks image URLs before they are downloaded
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	maxURLs        int
}

// NewURLValidator accepts http and https URLs on any host
func NewURLValidator(maxURLs int) *URLValidator {
	return NewURLValidatorWithOptions([]string{"http", "https"}, nil, maxURLs)
}

// NewURLValidatorWithOptions restricts schemes and, when hosts is not empty,
// hosts
func NewURLValidatorWithOptions(schemes []string, hosts []string, maxURLs int) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
		maxURLs:        maxURLs,
	}
}

// ValidateImageURL validates a single URL
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !slices.Contains(v.allowedSchemes, parsed.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if parsed.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if len(v.allowedHosts) > 0 && !slices.Contains(v.allowedHosts, parsed.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	return nil
}

// ValidateURLs checks the count and every entry of a classify-by-URL request
func (v *URLValidator) ValidateURLs(urls []string) error {
	if len(urls) == 0 {
		return apperrors.NewValidationError("No URLs supplied", nil)
	}
	if v.maxURLs > 0 && len(urls) > v.maxURLs {
		return apperrors.NewValidationError(fmt.Sprintf("Too many URLs (max %d)", v.maxURLs), nil)
	}
	for i, u := range urls {
		if err := v.ValidateImageURL(u); err != nil {
			return fmt.Errorf("url %d: %w", i, err)
		}
	}
	return nil
}
