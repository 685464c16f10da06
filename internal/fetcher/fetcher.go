// Package fetcher reads the current application status from the ministry
// status endpoint.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// Fetcher is the authoritative status source: possibly slow, possibly
// failing. Callers bound it with a context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, key types.ApplicationKey) (string, error)
}

// The endpoint occasionally drops requests from repeated identical clients,
// so each attempt rotates the user agent.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// HTTPFetcher posts the application form fields and decodes the status from
// the JSON response. Empty responses are retried a bounded number of times
// with a jittered delay.
type HTTPFetcher struct {
	client        *http.Client
	url           string
	retries       int
	retryInterval time.Duration
	log           *zap.Logger
}

func NewHTTPFetcher(endpoint string, retries int, log *zap.Logger) *HTTPFetcher {
	if retries < 0 {
		retries = 0
	}
	return &HTTPFetcher{
		client:        &http.Client{Timeout: 30 * time.Second},
		url:           endpoint,
		retries:       retries,
		retryInterval: 20 * time.Second,
		log:           log,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, key types.ApplicationKey) (string, error) {
	status, err := f.doFetch(ctx, key)
	attemptsLeft := f.retries
	for attemptsLeft > 0 && (err != nil || status == "") {
		attemptsLeft--
		retryIn := f.retryInterval/3 + time.Duration(rand.Int63n(int64(2*f.retryInterval/3)))
		f.log.Info("fetch failed, will retry",
			zap.String("application", key.String()),
			zap.Duration("retry_in", retryIn),
			zap.Error(err))
		select {
		case <-time.After(retryIn):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		status, err = f.doFetch(ctx, key)
	}
	if err != nil {
		return "", err
	}
	if status == "" {
		return "", fmt.Errorf("empty status for application %s", key)
	}
	return status, nil
}

func (f *HTTPFetcher) doFetch(ctx context.Context, key types.ApplicationKey) (string, error) {
	form := url.Values{}
	form.Set("cisloJednaci", key.Number)
	form.Set("poradoveCislo", key.Suffix)
	form.Set("typZadosti", key.Type)
	form.Set("rok", key.Year)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Language", "cs-CZ")
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status endpoint returned %s", resp.Status)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return strings.TrimSpace(body.Status), nil
}
