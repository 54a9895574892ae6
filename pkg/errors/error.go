package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"

	// ErrUnroutableOrderType represents an order type with no lane mapping.
	// A configuration error: the event is dropped, never retried.
	ErrUnroutableOrderType ErrorCode = "unroutable_order_type"
	// ErrDuplicateOrderEvent represents an insert event already seen within the dedup window.
	ErrDuplicateOrderEvent ErrorCode = "duplicate_order_event"
	// ErrEnqueueFailed represents a failure to publish an order message onto its lane.
	ErrEnqueueFailed ErrorCode = "enqueue_failed"

	// ErrMakerGone represents a maker whose conditional update matched no row during commit.
	ErrMakerGone ErrorCode = "maker_gone"
	// ErrCommitFailed represents a failed atomic settlement transaction.
	ErrCommitFailed ErrorCode = "commit_failed"
	// ErrMarketNotFound represents a symbol/mode pair with no market metadata.
	ErrMarketNotFound ErrorCode = "market_not_found"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisSetNXError represents an error when setting a value in Redis with SetNX.
	RedisSetNXError ErrorCode = "redis_setnx_error"
	// RedisPublishError represents an error when publishing messages to channels in Redis.
	RedisPublishError ErrorCode = "redis_publish_error"
)

// Severity represents the severity level of an error.
type Severity string

const (
	// SeverityCritical indicates a critical error that requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityHigh indicates a high severity error that should be addressed promptly.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a medium severity error that should be addressed in due course.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a low severity error that can be addressed at a later time.
	SeverityLow Severity = "low"
)

// Category represents the category of an error.
type Category string

const (
	// CategoryDatabase indicates an error related to database operations.
	CategoryDatabase Category = "database"
	// CategoryNetwork indicates an error related to network operations.
	CategoryNetwork Category = "network"
	// CategoryValidation indicates an error related to validation of input data.
	CategoryValidation Category = "validation"
	// CategoryBusinessLogic indicates an error related to business logic processing.
	CategoryBusinessLogic Category = "business_logic"
	// CategoryUnknown indicates an unknown error category.
	CategoryUnknown Category = "unknown"
)

// classification assigns each known error code its severity and category.
var classification = map[ErrorCode]struct {
	severity Severity
	category Category
}{
	GeneralBadRequestError: {SeverityLow, CategoryValidation},
	GeneralNotFoundError:   {SeverityLow, CategoryValidation},
	GeneralRepositoryError: {SeverityHigh, CategoryDatabase},

	ErrUnroutableOrderType: {SeverityHigh, CategoryValidation},
	ErrDuplicateOrderEvent: {SeverityLow, CategoryBusinessLogic},
	ErrEnqueueFailed:       {SeverityHigh, CategoryNetwork},

	ErrMakerGone:      {SeverityMedium, CategoryBusinessLogic},
	ErrCommitFailed:   {SeverityCritical, CategoryDatabase},
	ErrMarketNotFound: {SeverityLow, CategoryValidation},

	RedisConfigError:     {SeverityHigh, CategoryValidation},
	RedisConnectionError: {SeverityCritical, CategoryNetwork},
	RedisPingError:       {SeverityHigh, CategoryNetwork},
	RedisSetNXError:      {SeverityMedium, CategoryNetwork},
	RedisPublishError:    {SeverityMedium, CategoryNetwork},
}

// Classify resolves an error code to its severity and category. Unknown
// codes get SeverityMedium and CategoryUnknown.
func Classify(code ErrorCode) (Severity, Category) {
	if c, ok := classification[code]; ok {
		return c.severity, c.category
	}
	return SeverityMedium, CategoryUnknown
}
