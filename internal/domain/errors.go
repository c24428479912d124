package domain

import (
	"context"
	"errors"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrEmptyQuery is returned when the search query is empty or whitespace only
	ErrEmptyQuery = errors.New("query is required")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrUpstreamFailure is returned when a marketplace or model request fails
	ErrUpstreamFailure = errors.New("upstream request failed")

	// ErrUpstreamStatus is returned when an upstream answers with a non-2xx status
	ErrUpstreamStatus = errors.New("unexpected upstream status")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrParse is returned when a document or payload does not have the expected shape
	ErrParse = errors.New("unexpected document shape")

	// ErrEmptyCompletion is returned when the keyword model answers with nothing usable
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrGeneratorDisabled is returned when no keyword model is configured
	ErrGeneratorDisabled = errors.New("keyword generator not configured")
)

// ErrorKind groups errors by how the pipeline recovers from them
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUpstream
	KindParse
	KindCacheMiss
	KindCacheUnavailable
	KindValidation
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUpstream:
		return "upstream"
	case KindParse:
		return "parse"
	case KindCacheMiss:
		return "cache_miss"
	case KindCacheUnavailable:
		return "cache_unavailable"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Classify maps an error onto the kind that decides its fallback.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidRequest):
		return KindValidation
	case errors.Is(err, ErrCacheMiss):
		return KindCacheMiss
	case errors.Is(err, ErrCacheUnavailable):
		return KindCacheUnavailable
	case errors.Is(err, ErrUpstreamFailure),
		errors.Is(err, ErrUpstreamStatus),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrGeneratorDisabled),
		errors.Is(err, context.DeadlineExceeded):
		return KindUpstream
	case errors.Is(err, ErrParse), errors.Is(err, ErrEmptyCompletion):
		return KindParse
	default:
		return KindInternal
	}
}
