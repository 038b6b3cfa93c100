package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"time"

	"go-produce-inspector/internal/logger"
)

// DefaultMaxImageBytes caps a single downloaded image.
const DefaultMaxImageBytes = 20 << 20

// ImageFetcher downloads raw image bytes from a URL.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (*RemoteImage, error)
}

// RemoteImage is a downloaded file with the name it should be reported under.
type RemoteImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// HTTPImageFetcher implements ImageFetcher with bounded retries.
type HTTPImageFetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
	maxBytes int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher whose requests time out
// after timeout.
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		attempts: 3,
		backoff:  time.Second,
		maxBytes: DefaultMaxImageBytes,
	}
}

// WithBackoff sets the base delay between attempts; attempt n waits n*d.
func (h *HTTPImageFetcher) WithBackoff(d time.Duration) *HTTPImageFetcher {
	h.backoff = d
	return h
}

// WithClient swaps the underlying HTTP client.
func (h *HTTPImageFetcher) WithClient(c *http.Client) *HTTPImageFetcher {
	h.client = c
	return h
}

// FetchImage downloads imageURL. 4xx responses fail at once; network errors
// and 5xx responses are retried.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (*RemoteImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", redactError(err))
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Produce-Inspector/1.0")

	var lastErr error
	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		img, retry, err := h.try(req)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retry {
			break
		}
		logger.WithError(err).WithField("attempt", attempt+1).Debug("Image fetch failed, retrying")
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.attempts, lastErr)
}

// try performs one request and reports whether a failure is worth retrying.
func (h *HTTPImageFetcher) try(req *http.Request) (*RemoteImage, bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, req.Context().Err() == nil, redactError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, fmt.Errorf("image larger than %d bytes", h.maxBytes)
	}

	return &RemoteImage{
		Name:        nameFromURL(req.URL.Path),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, false, nil
}

func nameFromURL(p string) string {
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return "image"
	}
	return base
}

// botTokenSegment matches the credential Telegram embeds in file download paths.
var botTokenSegment = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// redactError rewrites the URL inside a *url.Error so credentials in the
// user info, query or path never reach logs.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	u.Path = botTokenSegment.ReplaceAllString(u.Path, "bot-redacted")
	u.RawPath = ""
	return u.String()
}
