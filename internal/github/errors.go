package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
)

// HTTPStatusError is a non-2xx response from the GitHub API with a message
// a human can act on.
type HTTPStatusError struct {
	StatusCode  int
	Message     string
	Remediation string
	// APIMessage is the raw message returned by GitHub.
	APIMessage string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("github: %s (HTTP %d)", e.Message, e.StatusCode)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

// Mentions reports whether GitHub's own message contains s, case-insensitively.
func (e *HTTPStatusError) Mentions(s string) bool {
	return strings.Contains(strings.ToLower(e.APIMessage), strings.ToLower(s))
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an API error.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// MapHTTPError converts go-gh transport errors into *HTTPStatusError.
// Other errors are returned unchanged.
func MapHTTPError(err error) error {
	if err == nil {
		return nil
	}
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	se := &HTTPStatusError{
		StatusCode: httpErr.StatusCode,
		APIMessage: httpErr.Message,
		Err:        err,
	}
	switch httpErr.StatusCode {
	case http.StatusUnauthorized:
		se.Message = "GitHub token is invalid or expired"
		se.Remediation = "Run 'gh auth login' or refresh the configured token"
	case http.StatusForbidden:
		se.Message = "GitHub token lacks required permissions"
		if httpErr.Message != "" {
			se.Message = fmt.Sprintf("GitHub error: %s", httpErr.Message)
		}
		se.Remediation = "Ensure the token has the 'repo' and 'workflow' scopes, or wait for the rate limit to reset"
	case http.StatusNotFound:
		se.Message = "repository or workflow not found"
		se.Remediation = "Verify the repository name and that the token can see it"
	case http.StatusUnprocessableEntity:
		se.Message = "GitHub rejected the request"
		if httpErr.Message != "" {
			se.Message = fmt.Sprintf("GitHub rejected the request: %s", httpErr.Message)
		}
		se.Remediation = "Check that the workflow has a workflow_dispatch trigger and accepts the given inputs"
	case http.StatusTooManyRequests:
		se.Message = "GitHub API rate limit exceeded"
		se.Remediation = "Wait a few minutes before retrying"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		se.Message = "GitHub API is experiencing issues"
		se.Remediation = "Try again in a few minutes"
	default:
		if httpErr.Message != "" {
			se.Message = fmt.Sprintf("GitHub API error: %s", httpErr.Message)
		} else {
			se.Message = fmt.Sprintf("GitHub API returned status code %d", httpErr.StatusCode)
		}
		se.Remediation = "Check the request and try again"
	}
	return se
}
