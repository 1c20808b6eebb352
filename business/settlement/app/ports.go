// Package app contains application services and port definitions for the settlement context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	chain "github.com/fd1az/paybridge/business/chain/domain"
	routingApp "github.com/fd1az/paybridge/business/routing/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
)

// RecordStore persists Transaction Records.
type RecordStore interface {
	// Upsert inserts seed when no record exists for seed.TxHash, then merges u
	// into the stored record atomically. It reports whether the record changed.
	Upsert(ctx context.Context, seed domain.Record, u domain.Update) (domain.Record, bool, error)

	// Get returns CodeRecordNotFound for unknown hashes.
	Get(ctx context.Context, txHash string) (domain.Record, error)
}

// DeadLetterStore keeps events no stage could resolve.
type DeadLetterStore interface {
	// Insert stores d once per ID and reports whether this call created it.
	Insert(ctx context.Context, d domain.DeadLetter) (bool, error)
}

// Publisher enqueues events for a stage.
type Publisher interface {
	Publish(ctx context.Context, stage domain.Stage, e domain.Event) error
}

// Notifier delivers merchant webhooks.
type Notifier interface {
	Notify(ctx context.Context, webhookURL string, n domain.Notification) error
}

// Alerter raises operator alerts.
type Alerter interface {
	Alert(ctx context.Context, a domain.Alert) error
}

// ReceiptReader reads receipts on the chains the service has RPC access to.
type ReceiptReader interface {
	Supports(chainID uint64) bool
	// Receipt returns chain.ErrReceiptNotFound while the transaction is unknown.
	Receipt(ctx context.Context, chainID uint64, hash common.Hash) (*chain.Receipt, error)
}

// ProviderResolver resolves the provider named in an event.
type ProviderResolver interface {
	Get(name string) (routingApp.Provider, error)
}

// Probe checks one stage of a transfer once.
type Probe interface {
	Stage() domain.Stage
	// Check returns domain.Retry when nothing definitive is known yet.
	Check(ctx context.Context, e domain.Event) (domain.Outcome, error)
}
