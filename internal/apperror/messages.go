package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",
	CodeUnauthorized:    "Missing or invalid credentials",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",
	CodeCircuitOpen:          "Upstream temporarily disabled after repeated failures",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeQuoteUnreachable:      "No route satisfies the requested destination amount",
	CodeProviderUnavailable:   "Routing provider unavailable",
	CodeInvalidRoute:          "Route not supported by provider",
	CodeInsufficientLiquidity: "Insufficient liquidity for requested amount",
	CodeUnknownProvider:       "Unknown routing provider",
	CodeUnknownAsset:          "Asset is not supported",
	CodeUnsupportedChain:      "Chain is not supported",
	CodePriceUnavailable:      "Spot price unavailable",
	CodeEnvelopeMalformed:     "Route envelope is malformed or was modified",

	CodeQuoteExpired:          "Quote expired, request a new quote",
	CodeInsufficientBalance:   "Payer balance is below the quoted source amount",
	CodeInsufficientAllowance: "Payer allowance is below the quoted source amount",
	CodeRelayFailed:           "Relayer failed to submit the transaction",
	CodeRelayerNotConfigured:  "No relayer configured for source chain",
	CodeEnvelopeUsed:          "Route envelope was already executed",
	CodePublishFailed:         "Failed to enqueue settlement event",

	CodeChainRPCError:       "Chain RPC call failed",
	CodeGasEstimationFailed: "Gas estimation failed",
	CodeGasPriceTooHigh:     "Gas price above configured ceiling",
	CodeContractCallFailed:  "Smart contract call failed",

	CodeRecordNotFound:  "Transaction record not found",
	CodeStoreError:      "Transaction store error",
	CodeStatusCheck:     "Settlement status check failed",
	CodeWebhookFailed:   "Merchant webhook delivery failed",
	CodeAlertFailed:     "Operator alert delivery failed",
	CodeQueueError:      "Queue operation failed",
	CodeInvalidEvent:    "Settlement event is invalid",
	CodePriceFeedFailed: "Price feed request failed",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",
}

// statusCodes pins HTTP statuses for codes whose name does not imply one.
var statusCodes = map[Code]int{
	CodeQuoteUnreachable:      422,
	CodeProviderUnavailable:   502,
	CodeInsufficientLiquidity: 422,
	CodeUnknownProvider:       400,
	CodeUnknownAsset:          400,
	CodeUnsupportedChain:      400,
	CodePriceUnavailable:      503,
	CodeEnvelopeMalformed:     400,
	CodeQuoteExpired:          410,
	CodeInsufficientBalance:   402,
	CodeInsufficientAllowance: 402,
	CodeRelayFailed:           502,
	CodeRelayerNotConfigured:  400,
	CodeEnvelopeUsed:          409,
	CodeCircuitOpen:           503,
	CodeRequiredField:         400,
	CodeValidationError:       400,
}
