package usecase

import "github.com/shopsense/backend/internal/domain"

// Operation names a pipeline step that can fail
type Operation string

const (
	OpRequest     Operation = "request"
	OpKeywords    Operation = "keywords"
	OpSearchFetch Operation = "search_fetch"
	OpReviewFetch Operation = "review_fetch"
	OpCacheRead   Operation = "cache_read"
	OpCacheWrite  Operation = "cache_write"
)

// FallbackAction is what the pipeline does instead of propagating an error
type FallbackAction string

const (
	ActionNone          FallbackAction = "none"
	ActionLocalKeywords FallbackAction = "local_keywords"
	ActionMockProducts  FallbackAction = "mock_products"
	ActionEmptyReviews  FallbackAction = "empty_reviews"
	ActionTreatAsMiss   FallbackAction = "treat_as_miss"
	ActionDropWrite     FallbackAction = "drop_write"
	ActionClientError   FallbackAction = "client_error"
	ActionServerError   FallbackAction = "server_error"
)

type policyRow struct {
	byKind   map[domain.ErrorKind]FallbackAction
	fallback FallbackAction
}

// fallbackPolicy is the single place deciding how each failure is absorbed.
// Kinds not listed for an operation use the row's fallback.
var fallbackPolicy = map[Operation]policyRow{
	OpRequest: {
		byKind: map[domain.ErrorKind]FallbackAction{
			domain.KindValidation: ActionClientError,
		},
		fallback: ActionServerError,
	},
	OpKeywords: {
		fallback: ActionLocalKeywords,
	},
	OpSearchFetch: {
		byKind: map[domain.ErrorKind]FallbackAction{
			domain.KindValidation: ActionClientError,
		},
		fallback: ActionMockProducts,
	},
	OpReviewFetch: {
		fallback: ActionEmptyReviews,
	},
	OpCacheRead: {
		fallback: ActionTreatAsMiss,
	},
	OpCacheWrite: {
		fallback: ActionDropWrite,
	},
}

// ResolveFallback returns the action for err raised by op. A nil error
// resolves to ActionNone.
func ResolveFallback(op Operation, err error) FallbackAction {
	kind := domain.Classify(err)
	if kind == domain.KindNone {
		return ActionNone
	}
	row, ok := fallbackPolicy[op]
	if !ok {
		return ActionServerError
	}
	if action, ok := row.byKind[kind]; ok {
		return action
	}
	return row.fallback
}
