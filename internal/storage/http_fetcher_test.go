package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0
			body := pngBytes(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if requestCount >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				statusCode := tt.responses[requestCount]
				requestCount++

				if statusCode == 200 {
					w.Header().Set("Content-Type", "image/png")
					w.Write(body)
					return
				}
				w.WriteHeader(statusCode)
				w.Write([]byte(fmt.Sprintf("Error %d", statusCode)))
			}))
			defer server.Close()

			fetcher := NewHTTPImageFetcher(5 * time.Second).WithBackoff(time.Millisecond)
			img, err := fetcher.FetchImage(context.Background(), server.URL+"/apples/apple_01.png")

			if requestCount != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, requestCount)
			}

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error, but got none")
				} else if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if img.Name != "apple_01.png" {
				t.Errorf("Expected name apple_01.png, got %s", img.Name)
			}
			if !bytes.Equal(img.Data, body) {
				t.Errorf("Downloaded bytes differ from served bytes")
			}
		})
	}
}

func TestHTTPImageFetcher_NetworkError_Retry(t *testing.T) {
	requestCount := 0
	body := pngBytes(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(5 * time.Second).WithBackoff(10 * time.Millisecond)

	start := time.Now()
	_, err := fetcher.FetchImage(context.Background(), server.URL)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	// 1x + 2x backoff
	if duration < 30*time.Millisecond {
		t.Errorf("Expected at least 30ms due to backoff, took %v", duration)
	}
}

func TestHTTPImageFetcher_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0xff}, 64))
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(time.Second)
	fetcher.maxBytes = 16

	_, err := fetcher.FetchImage(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "larger than") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestHTTPImageFetcher_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPImageFetcher(time.Second).FetchImage(ctx, server.URL)
	if err == nil {
		t.Errorf("Expected error for cancelled context")
	}
}

func TestNameFromURL(t *testing.T) {
	tests := map[string]string{
		"/a/b/pear.jpg": "pear.jpg",
		"/":             "image",
		"":              "image",
	}
	for in, want := range tests {
		if got := nameFromURL(in); got != want {
			t.Errorf("nameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPImageFetcher_ErrorHidesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	fetcher := NewHTTPImageFetcher(time.Second).WithBackoff(time.Millisecond)
	_, err := fetcher.FetchImage(context.Background(), addr+"/file/bot123456:SECRET-TOKEN/photos/file_1.jpg?sig=abc")
	if err == nil {
		t.Fatal("Expected connection error")
	}
	msg := err.Error()
	if strings.Contains(msg, "SECRET-TOKEN") || strings.Contains(msg, "sig=abc") {
		t.Errorf("Credential leaked into error: %s", msg)
	}
	if !strings.Contains(msg, "bot-redacted") {
		t.Errorf("Expected redacted path in error, got %s", msg)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.telegram.org/file/bot42:AbC_d-e/photos/f.jpg", "https://api.telegram.org/file/bot-redacted/photos/f.jpg"},
		{"https://user:pw@example.com/a.png?token=x", "https://example.com/a.png?redacted"},
		{"https://example.com/crate/plum.png", "https://example.com/crate/plum.png"},
		{"://bad", "[redacted]"},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
