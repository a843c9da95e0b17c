package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to chain RPC",
	CodeEthereumRPCError:         "Chain RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeContractNotDeployed:      "Execution contract has no deployed code",
	CodeContractReverted:         "Execution contract reverted",
	CodeTransactionSendFailed:    "Failed to send transaction",

	CodeVenueUnavailable: "Quote venue unavailable",
	CodeUnknownVenue:     "Unknown quote venue",
	CodeInvalidQuote:     "Invalid quote data",
	CodeMalformedRoute:   "Swap route is missing target or call data",

	CodeGasTooHigh:             "Gas price above ceiling",
	CodeInsufficientBalance:    "Native balance below minimum",
	CodeOpportunityStale:       "Opportunity is older than the freshness window",
	CodeBelowThreshold:         "Opportunity no longer meets profit thresholds",
	CodeMissingCredential:      "Signing key is not configured",
	CodeMalformedCredential:    "Signing key is malformed",
	CodeRealTradingDisabled:    "Real trading is not enabled",
	CodeMissingContractAddress: "Execution contract address is not configured",
	CodeScannerRunning:         "Scanner is already running",
	CodeStorageError:           "Storage operation failed",
	CodeNotificationFailed:     "Notification delivery failed",

	CodeCircuitOpen: "Circuit breaker is open",
}
