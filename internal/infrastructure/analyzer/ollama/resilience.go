package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/resilience"
)

// HTTPStatusError carries the analyzer's non-2xx response so the classifier
// can tell transient provider trouble from a request we got wrong.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "analyzer status error"
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return fmt.Sprintf("analyzer %s status: %s: %s", e.Operation, e.Status, body)
	}
	return fmt.Sprintf("analyzer %s status: %s", e.Operation, e.Status)
}

func classifyAnalyzerError(err error) resilience.ErrorClassification {
	const retry = true

	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{}
	case errors.Is(err, context.DeadlineExceeded):
		// A per-attempt timeout is retryable: the outer context may still
		// have budget for the second attempt.
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: true}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if retryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: retry, RecordFailure: true}
		}
		// 4xx means our prompt or payload is wrong. Retrying will not help
		// and the provider is healthy, so the breaker stays untouched.
		return resilience.ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: true}
	}

	return resilience.ErrorClassification{RecordFailure: true}
}

func retryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
