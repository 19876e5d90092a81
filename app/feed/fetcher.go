package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses alike.
	ErrNetwork = errors.New("network error")
	// ErrParse marks a document that is neither RSS nor Atom.
	ErrParse = errors.New("parse error")
)

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher(httpClient *http.Client, userAgent string) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (f *Fetcher) Run(ctx context.Context, source Source) (Document, error) {
	if !source.Supported() {
		return Document{}, fmt.Errorf("source %s has no feed URL", source.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.FeedURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("%w: failed to fetch %s: %v", ErrNetwork, source.FeedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, fmt.Errorf("%w: HTTP error: %s", ErrNetwork, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, err)
	}

	return Document{Source: source.Name, Body: data}, nil
}
