package domain

import "github.com/fd1az/paybridge/internal/asset"

// Notification is the merchant webhook body.
type Notification struct {
	TransactionHash   string `json:"transactionHash"`
	FinalStatus       Status `json:"finalStatus"`
	StatusType        Stage  `json:"statusType"`
	FromAddress       string `json:"fromAddress"`
	FromAsset         string `json:"fromAsset"`
	FromNetwork       string `json:"fromNetwork"`
	ToNetwork         string `json:"toNetwork"`
	ToAsset           string `json:"toAsset"`
	ToAddress         string `json:"toAddress"`
	RequestID         string `json:"requestId"`
	FromAmount        string `json:"fromAmount"`
	ToAmount          string `json:"toAmount"`
	PlatformFee       string `json:"platformFee"`
	ProviderFee       string `json:"providerFee"`
	MerchantAddress   string `json:"merchantAddress"`
	DestinationTxHash string `json:"destinationTransactionHash,omitempty"`
}

// NewNotification reports the stage's view of rec. The source stage reports
// the source leg outcome, the destination stage the transfer's final status.
func NewNotification(stage Stage, rec Record) Notification {
	status := rec.FinalStatus
	if stage == StageSource {
		status = rec.SourceStatus
	}
	return Notification{
		TransactionHash:   rec.TxHash,
		FinalStatus:       status,
		StatusType:        stage,
		FromAddress:       rec.FromAddress,
		FromAsset:         rec.FromAsset,
		FromNetwork:       asset.ChainName(rec.FromChain),
		ToNetwork:         asset.ChainName(rec.ToChain),
		ToAsset:           rec.ToAsset,
		ToAddress:         rec.ToAddress,
		RequestID:         rec.RequestID,
		FromAmount:        rec.FromAmount,
		ToAmount:          rec.ToAmount,
		PlatformFee:       rec.PlatformFee,
		ProviderFee:       rec.ProviderFee,
		MerchantAddress:   rec.MerchantAddress,
		DestinationTxHash: rec.DestinationTxHash,
	}
}
