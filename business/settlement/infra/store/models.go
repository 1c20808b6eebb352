// Package store persists Transaction Records and dead letters in a relational
// database through gorm, or in MongoDB.
package store

import (
	"time"

	"github.com/fd1az/paybridge/business/settlement/domain"
)

// recordModel is the transaction_records row.
type recordModel struct {
	TxHash    string `gorm:"primaryKey;size:128" bson:"_id"`
	RequestID string `gorm:"size:128;index" bson:"request_id"`
	Provider  string `gorm:"size:32;not null" bson:"provider"`

	FromChain        uint64 `gorm:"not null" bson:"from_chain"`
	ToChain          uint64 `gorm:"not null" bson:"to_chain"`
	FromAsset        string `gorm:"size:32" bson:"from_asset"`
	FromAssetAddress string `gorm:"size:128" bson:"from_asset_address"`
	ToAsset          string `gorm:"size:32" bson:"to_asset"`
	ToAssetAddress   string `gorm:"size:128" bson:"to_asset_address"`
	FromAddress      string `gorm:"size:128;index" bson:"from_address"`
	ToAddress        string `gorm:"size:128" bson:"to_address"`

	FromAmount    string `gorm:"size:80" bson:"from_amount"`
	FromAmountRaw string `gorm:"size:80" bson:"from_amount_raw"`
	ToAmount      string `gorm:"size:80" bson:"to_amount"`
	ToAmountRaw   string `gorm:"size:80" bson:"to_amount_raw"`
	PlatformFee   string `gorm:"size:80" bson:"platform_fee"`
	ProviderFee   string `gorm:"size:80" bson:"provider_fee"`

	DepositAddress    string `gorm:"size:128" bson:"deposit_address"`
	DestinationTxHash string `gorm:"size:128" bson:"destination_tx_hash"`
	MerchantAddress   string `gorm:"size:128;index" bson:"merchant_address"`
	MerchantWebhook   string `gorm:"type:text" bson:"merchant_webhook"`

	SourceStatus string `gorm:"size:16" bson:"source_status"`
	FinalStatus  string `gorm:"size:16;index;not null" bson:"final_status"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (recordModel) TableName() string {
	return "transaction_records"
}

// deadLetterModel is the dead_letters row.
type deadLetterModel struct {
	ID         string    `gorm:"primaryKey;size:191" bson:"_id"`
	TxHash     string    `gorm:"size:128;index;not null" bson:"tx_hash"`
	Stage      string    `gorm:"size:16;not null" bson:"stage"`
	Deliveries int       `bson:"deliveries"`
	Payload    string    `gorm:"type:text" bson:"payload"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (deadLetterModel) TableName() string {
	return "dead_letters"
}

func toRecordModel(r domain.Record) recordModel {
	return recordModel{
		TxHash:            r.TxHash,
		RequestID:         r.RequestID,
		Provider:          r.Provider,
		FromChain:         r.FromChain,
		ToChain:           r.ToChain,
		FromAsset:         r.FromAsset,
		FromAssetAddress:  r.FromAssetAddress,
		ToAsset:           r.ToAsset,
		ToAssetAddress:    r.ToAssetAddress,
		FromAddress:       r.FromAddress,
		ToAddress:         r.ToAddress,
		FromAmount:        r.FromAmount,
		FromAmountRaw:     r.FromAmountRaw,
		ToAmount:          r.ToAmount,
		ToAmountRaw:       r.ToAmountRaw,
		PlatformFee:       r.PlatformFee,
		ProviderFee:       r.ProviderFee,
		DepositAddress:    r.DepositAddress,
		DestinationTxHash: r.DestinationTxHash,
		MerchantAddress:   r.MerchantAddress,
		MerchantWebhook:   r.MerchantWebhook,
		SourceStatus:      string(r.SourceStatus),
		FinalStatus:       string(r.FinalStatus),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (m recordModel) toDomain() domain.Record {
	return domain.Record{
		TxHash:            m.TxHash,
		RequestID:         m.RequestID,
		Provider:          m.Provider,
		FromChain:         m.FromChain,
		ToChain:           m.ToChain,
		FromAsset:         m.FromAsset,
		FromAssetAddress:  m.FromAssetAddress,
		ToAsset:           m.ToAsset,
		ToAssetAddress:    m.ToAssetAddress,
		FromAddress:       m.FromAddress,
		ToAddress:         m.ToAddress,
		FromAmount:        m.FromAmount,
		FromAmountRaw:     m.FromAmountRaw,
		ToAmount:          m.ToAmount,
		ToAmountRaw:       m.ToAmountRaw,
		PlatformFee:       m.PlatformFee,
		ProviderFee:       m.ProviderFee,
		DepositAddress:    m.DepositAddress,
		DestinationTxHash: m.DestinationTxHash,
		MerchantAddress:   m.MerchantAddress,
		MerchantWebhook:   m.MerchantWebhook,
		SourceStatus:      domain.Status(m.SourceStatus),
		FinalStatus:       domain.Status(m.FinalStatus),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toDeadLetterModel(d domain.DeadLetter) deadLetterModel {
	return deadLetterModel{
		ID:         d.ID,
		TxHash:     d.TxHash,
		Stage:      string(d.Stage),
		Deliveries: d.Deliveries,
		Payload:    string(d.Payload),
		CreatedAt:  d.CreatedAt,
	}
}
