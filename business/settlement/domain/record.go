package domain

import "time"

// Status is the outcome of one leg, or of the whole transfer.
type Status string

const (
	// StatusUnset means the source leg has not been observed yet.
	StatusUnset      Status = ""
	StatusPending    Status = "pending"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	// StatusNotFound marks a transfer no stage could resolve within its retry budget.
	StatusNotFound Status = "not_found"
)

// Terminal reports whether s is a definitive financial outcome.
// not_found is not terminal: a later observation may still resolve it.
func (s Status) Terminal() bool {
	return s == StatusSuccessful || s == StatusFailed
}

// Record is the durable, append-only view of one transfer, keyed by TxHash.
type Record struct {
	TxHash    string
	RequestID string
	Provider  string

	FromChain        uint64
	ToChain          uint64
	FromAsset        string
	FromAssetAddress string
	ToAsset          string
	ToAssetAddress   string
	FromAddress      string
	ToAddress        string

	FromAmount    string
	FromAmountRaw string
	ToAmount      string
	ToAmountRaw   string
	PlatformFee   string
	ProviderFee   string

	DepositAddress    string
	DestinationTxHash string
	MerchantAddress   string
	MerchantWebhook   string

	SourceStatus Status
	FinalStatus  Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord seeds a pending record from an event.
func NewRecord(e Event, now time.Time) Record {
	return Record{
		TxHash:           e.TxHash,
		RequestID:        e.RequestID,
		Provider:         e.Provider,
		FromChain:        e.FromChain,
		ToChain:          e.ToChain,
		FromAsset:        e.FromAsset,
		FromAssetAddress: e.FromAssetAddress,
		ToAsset:          e.ToAsset,
		ToAssetAddress:   e.ToAssetAddress,
		FromAddress:      e.FromAddress,
		ToAddress:        e.ToAddress,
		FromAmount:       e.FromAmount,
		FromAmountRaw:    e.FromAmountRaw,
		ToAmount:         e.ToAmount,
		ToAmountRaw:      e.ToAmountRaw,
		PlatformFee:      e.PlatformFee,
		ProviderFee:      e.ProviderFee,
		DepositAddress:   e.DepositAddress,
		MerchantAddress:  e.MerchantAddress,
		MerchantWebhook:  e.MerchantWebhook,
		SourceStatus:     StatusUnset,
		FinalStatus:      StatusPending,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}

// Update is a partial status change. Zero fields leave the record untouched.
type Update struct {
	SourceStatus      Status
	FinalStatus       Status
	DestinationTxHash string
}

// Merge applies u and reports whether anything changed. Terminal statuses are
// never overwritten; pending never replaces an existing final status.
func (r Record) Merge(u Update, now time.Time) (Record, bool) {
	changed := false

	if r.SourceStatus == StatusUnset && u.SourceStatus.Terminal() {
		r.SourceStatus = u.SourceStatus
		changed = true
	}

	switch {
	case r.FinalStatus.Terminal(), u.FinalStatus == StatusUnset, u.FinalStatus == r.FinalStatus:
	case u.FinalStatus == StatusPending && r.FinalStatus != StatusUnset:
	default:
		r.FinalStatus = u.FinalStatus
		changed = true
	}

	if r.DestinationTxHash == "" && u.DestinationTxHash != "" {
		r.DestinationTxHash = u.DestinationTxHash
		changed = true
	}

	if changed {
		r.UpdatedAt = now.UTC()
	}
	return r, changed
}
