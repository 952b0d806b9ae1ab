package llm

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Outcome is the typed result of a single send attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	default:
		return "permanent"
	}
}

var rateLimitIndicators = []string{"rate limit", "too many requests", "429", "quota"}

// Classify determines whether an error is worth retrying.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return OutcomeTransient
	}
	if status.Code(err) == codes.ResourceExhausted {
		return OutcomeTransient
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range rateLimitIndicators {
		if strings.Contains(msg, indicator) {
			return OutcomeTransient
		}
	}
	return OutcomePermanent
}
