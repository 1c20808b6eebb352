package domain

// StatusState is a provider's view of a cross-chain transfer.
type StatusState string

const (
	StatusPending  StatusState = "pending"
	StatusDone     StatusState = "done"
	StatusFailed   StatusState = "failed"
	StatusNotFound StatusState = "not_found"
)

// StatusRequest identifies a transfer to a provider's status API.
type StatusRequest struct {
	RequestID      string
	TxHash         string
	FromChain      uint64
	ToChain        uint64
	DepositAddress string
}

// ProviderStatus is a provider's normalized status answer.
type ProviderStatus struct {
	State StatusState
	// SourceConfirmed is set once the provider has seen the source funds.
	SourceConfirmed   bool
	DestinationTxHash string
	Substatus         string
}
