package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-scorer/internal/utils"
)

var (
	ErrEstimateFailed = errors.New("estimate failed")
	ErrScoringFailed  = errors.New("scoring failed")
	// ErrMalformedResult is a ScoringFailed whose payload misses required fields.
	ErrMalformedResult = fmt.Errorf("%w: malformed result", ErrScoringFailed)
)

const maxMessageLength = 160

// APIError is a non-2xx answer of the scoring service.
type APIError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Detail)
}

// Describe turns an error from this package into a one-line message for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	prefix := "request failed"
	switch {
	case errors.Is(err, ErrMalformedResult):
		prefix = "scoring service returned an incomplete result"
	case errors.Is(err, ErrScoringFailed):
		prefix = "scoring failed"
	case errors.Is(err, ErrEstimateFailed):
		prefix = "token estimate unavailable"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		reason := apiErr.Detail
		if reason == "" {
			reason = apiErr.Status
		}
		return utils.TruncateForLog(utils.OneLine(prefix+": "+reason), maxMessageLength)
	}

	// drop the sentinel text already covered by the prefix
	reason := err.Error()
	for _, sentinel := range []error{ErrMalformedResult, ErrScoringFailed, ErrEstimateFailed} {
		reason = strings.TrimPrefix(reason, sentinel.Error()+": ")
	}

	return utils.TruncateForLog(utils.OneLine(prefix+": "+reason), maxMessageLength)
}
