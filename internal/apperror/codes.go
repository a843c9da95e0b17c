package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeContractNotDeployed      Code = "CONTRACT_NOT_DEPLOYED"
	CodeContractReverted         Code = "CONTRACT_REVERTED"
	CodeTransactionSendFailed    Code = "TRANSACTION_SEND_FAILED"
)

// Quote source codes
const (
	CodeVenueUnavailable Code = "VENUE_UNAVAILABLE"
	CodeUnknownVenue     Code = "UNKNOWN_VENUE"
	CodeInvalidQuote     Code = "INVALID_QUOTE"
	CodeMalformedRoute   Code = "MALFORMED_ROUTE"
)

// Scanner and executor codes
const (
	CodeGasTooHigh             Code = "GAS_TOO_HIGH"
	CodeInsufficientBalance    Code = "INSUFFICIENT_BALANCE"
	CodeOpportunityStale       Code = "OPPORTUNITY_STALE"
	CodeBelowThreshold         Code = "BELOW_THRESHOLD"
	CodeMissingCredential      Code = "MISSING_CREDENTIAL"
	CodeMalformedCredential    Code = "MALFORMED_CREDENTIAL"
	CodeRealTradingDisabled    Code = "REAL_TRADING_DISABLED"
	CodeMissingContractAddress Code = "MISSING_CONTRACT_ADDRESS"
	CodeScannerRunning         Code = "SCANNER_ALREADY_RUNNING"
	CodeStorageError           Code = "STORAGE_ERROR"
	CodeNotificationFailed     Code = "NOTIFICATION_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
