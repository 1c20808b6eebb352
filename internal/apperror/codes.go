package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen          Code = "CIRCUIT_OPEN"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Routing and quoting
const (
	CodeQuoteUnreachable      Code = "QUOTE_UNREACHABLE"
	CodeProviderUnavailable   Code = "PROVIDER_UNAVAILABLE"
	CodeInvalidRoute          Code = "INVALID_ROUTE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeUnknownProvider       Code = "UNKNOWN_PROVIDER"
	CodeUnknownAsset          Code = "UNKNOWN_ASSET"
	CodeUnsupportedChain      Code = "UNSUPPORTED_CHAIN"
	CodePriceUnavailable      Code = "PRICE_UNAVAILABLE"
	CodeEnvelopeMalformed     Code = "ENVELOPE_MALFORMED"
)

// Execution
const (
	CodeQuoteExpired          Code = "QUOTE_EXPIRED"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"
	CodeRelayFailed           Code = "RELAY_FAILED"
	CodeRelayerNotConfigured  Code = "RELAYER_NOT_CONFIGURED"
	CodeEnvelopeUsed          Code = "ENVELOPE_ALREADY_USED"
	CodePublishFailed         Code = "PUBLISH_FAILED"
)

// Chain access
const (
	CodeChainRPCError       Code = "CHAIN_RPC_ERROR"
	CodeGasEstimationFailed Code = "GAS_ESTIMATION_FAILED"
	CodeGasPriceTooHigh     Code = "GAS_PRICE_TOO_HIGH"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"
)

// Settlement and persistence
const (
	CodeRecordNotFound  Code = "RECORD_NOT_FOUND"
	CodeStoreError      Code = "STORE_ERROR"
	CodeStatusCheck     Code = "STATUS_CHECK_FAILED"
	CodeWebhookFailed   Code = "WEBHOOK_FAILED"
	CodeAlertFailed     Code = "ALERT_FAILED"
	CodeQueueError      Code = "QUEUE_ERROR"
	CodeInvalidEvent    Code = "INVALID_EVENT"
	CodePriceFeedFailed Code = "PRICE_FEED_FAILED"

	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)
