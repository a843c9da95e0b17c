package apperror

import "errors"

// Class groups codes by how the pipeline reacts to them.
type Class string

const (
	// ClassThresholdNotMet is a normal outcome: skip, never log as an error.
	ClassThresholdNotMet Class = "threshold_not_met"
	// ClassInfrastructure is retried at the next scheduled cycle.
	ClassInfrastructure Class = "infrastructure"
	// ClassConfiguration is fatal until configuration changes.
	ClassConfiguration Class = "configuration"
	// ClassOnChainRejection is fatal: resubmitting identical parameters fails identically.
	ClassOnChainRejection Class = "on_chain_rejection"
	// ClassInternal covers bugs and unexpected states.
	ClassInternal Class = "internal"
)

var classes = map[Code]Class{
	CodeGasTooHigh:          ClassThresholdNotMet,
	CodeInsufficientBalance: ClassThresholdNotMet,
	CodeOpportunityStale:    ClassThresholdNotMet,
	CodeBelowThreshold:      ClassThresholdNotMet,

	CodeServiceTimeout:           ClassInfrastructure,
	CodeServiceUnavailable:       ClassInfrastructure,
	CodeRateLimitExceeded:        ClassInfrastructure,
	CodeEthereumConnectionFailed: ClassInfrastructure,
	CodeEthereumRPCError:         ClassInfrastructure,
	CodeGasEstimationFailed:      ClassInfrastructure,
	CodeContractCallFailed:       ClassInfrastructure,
	CodeTransactionSendFailed:    ClassInfrastructure,
	CodeVenueUnavailable:         ClassInfrastructure,
	CodeInvalidQuote:             ClassInfrastructure,
	CodeMalformedRoute:           ClassInfrastructure,
	CodeCircuitOpen:              ClassInfrastructure,
	CodeStorageError:             ClassInfrastructure,
	CodeNotificationFailed:       ClassInfrastructure,

	CodeConfigurationError:     ClassConfiguration,
	CodeUnknownVenue:           ClassConfiguration,
	CodeMissingCredential:      ClassConfiguration,
	CodeMalformedCredential:    ClassConfiguration,
	CodeRealTradingDisabled:    ClassConfiguration,
	CodeMissingContractAddress: ClassConfiguration,
	CodeContractNotDeployed:    ClassConfiguration,

	CodeContractReverted: ClassOnChainRejection,
}

var hints = map[Code]string{
	CodeMissingCredential:      "set executor.signer_key (or ARB_SIGNER_KEY) to a 64-character hex private key",
	CodeMalformedCredential:    "executor.signer_key must be 64 hex characters, optionally prefixed with 0x",
	CodeRealTradingDisabled:    "set executor.real_trading_enabled=true to allow real trades",
	CodeMissingContractAddress: "set executor.contract_address to the deployed execution contract",
	CodeContractNotDeployed:    "deploy the execution contract or fix executor.contract_address for this chain",
	CodeContractReverted:       "verify signer is authorized on the execution contract and that both legs still clear the profit floor",
	CodeMalformedRoute:         "the quote source returned an empty route; check venue support for this pair",
	CodeInsufficientBalance:    "fund the signer with native token to cover gas",
	CodeUnknownVenue:           "every venue in pricing.venues must reference a configured source",
}

// ClassFor returns the class registered for code.
func ClassFor(code Code) Class {
	if c, ok := classes[code]; ok {
		return c
	}
	return ClassInternal
}

// ClassOf returns the class of err, or ClassInternal for non-AppErrors.
func ClassOf(err error) Class {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Class
	}
	return ClassInternal
}

// HintOf returns the remediation hint carried by err.
func HintOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Hint
	}
	return ""
}
