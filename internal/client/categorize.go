package client

import (
	"context"
	"errors"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics and
// live-check failure reporting.
type ErrorCategory string

const (
	ErrorCategoryTimeout       ErrorCategory = "timeout"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryInvalidAPIKey ErrorCategory = "invalid_api_key"
	ErrorCategoryCityNotFound  ErrorCategory = "city_not_found"
	ErrorCategoryRateLimited   ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx   ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing       ErrorCategory = "parsing"
	ErrorCategoryCache         ErrorCategory = "cache"
	ErrorCategoryUnknown       ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory. Sentinel matches via
// errors.Is take precedence; message heuristics catch transport errors that
// carry no sentinel.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrInvalidAPIKey):
		return ErrorCategoryInvalidAPIKey
	case errors.Is(err, ErrCityNotFound):
		return ErrorCategoryCityNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream5xx
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection"):
		return ErrorCategoryNetwork
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "context deadline exceeded"):
		return ErrorCategoryTimeout
	case strings.Contains(msg, "parse"), strings.Contains(msg, "unmarshal"):
		return ErrorCategoryParsing
	case strings.Contains(msg, "cache"):
		return ErrorCategoryCache
	}
	return ErrorCategoryUnknown
}
