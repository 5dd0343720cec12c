package minify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/cenkalti/backoff.v1"

	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/validation"
	"github.com/conneroisu/jsplus/internal/version"
)

// DefaultRemoteEndpoint accepts a form field "input" and answers with the
// minified source.
const DefaultRemoteEndpoint = "https://www.toptal.com/developers/javascript-minifier/api/raw"

// maxRemoteResponse caps the size of a remote minifier response.
const maxRemoteResponse = 64 << 20

// RemoteTier posts source to a remote minification endpoint. Transient
// failures are retried with exponential backoff until MaxElapsed passes.
type RemoteTier struct {
	Endpoint   string
	Client     *http.Client
	MaxElapsed time.Duration
	logger     logging.Logger
}

// NewRemoteTier creates a remote tier for endpoint, or DefaultRemoteEndpoint
// when endpoint is empty.
func NewRemoteTier(logger logging.Logger, endpoint string, timeout time.Duration) (*RemoteTier, error) {
	if endpoint == "" {
		endpoint = DefaultRemoteEndpoint
	}
	if err := validation.ValidateURL(endpoint); err != nil {
		return nil, fmt.Errorf("invalid remote minifier endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &RemoteTier{
		Endpoint:   endpoint,
		Client:     &http.Client{Timeout: timeout},
		MaxElapsed: timeout,
		logger:     logger.WithComponent("remote_minifier"),
	}, nil
}

func (t *RemoteTier) Name() string { return "remote" }

// permanentError stops the retry loop.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (t *RemoteTier) Minify(ctx context.Context, src string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = t.MaxElapsed

	var out string
	var stop error
	operation := func() error {
		if err := ctx.Err(); err != nil {
			stop = err
			return nil
		}

		res, err := t.post(ctx, src)
		if perm, ok := err.(*permanentError); ok {
			stop = perm.err
			return nil
		}
		if err != nil {
			return err
		}
		out = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		t.logger.Debug(ctx, "Retrying remote minifier", "error", err.Error(), "wait", wait)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}
	if stop != nil {
		return "", stop
	}

	return out, nil
}

func (t *RemoteTier) post(ctx context.Context, src string) (string, error) {
	form := url.Values{"input": {src}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &permanentError{err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("remote minifier: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return "", &permanentError{fmt.Errorf("remote minifier: %s", resp.Status)}
	}

	return string(body), nil
}
