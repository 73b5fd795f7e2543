package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter ErrorCode = 100
	ErrCodeInvalidTradePlan ErrorCode = 101
	ErrCodeInvalidOrder     ErrorCode = 102

	// Transport errors (200-299)
	ErrCodeHTTPStatus       ErrorCode = 200
	ErrCodeNetworkTransport ErrorCode = 201
	ErrCodeRetryExhausted   ErrorCode = 202

	// Exchange errors (300-399)
	ErrCodeExchangeResponse   ErrorCode = 300
	ErrCodeExchangeRejected   ErrorCode = 301
	ErrCodeCandleParseFailed  ErrorCode = 302
	ErrCodeTickerParseFailed  ErrorCode = 303
	ErrCodeBalanceParseFailed ErrorCode = 304
	ErrCodeSigningFailed      ErrorCode = 305
	ErrCodeNotAuthenticated   ErrorCode = 306

	// Broker errors (400-499). Credential failures are deliberately absent:
	// the broker reports those as (false, message) outcomes, never errors.
	ErrCodeCancelFailed ErrorCode = 404

	// Backtest errors (500-599)
	ErrCodeBacktestBadInput ErrorCode = 500
)
