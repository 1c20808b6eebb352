package domain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReceiptNotFound is returned while a transaction is not yet mined.
var ErrReceiptNotFound = errors.New("chain: receipt not found")

// Receipt is the subset of a transaction receipt settlement needs.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}
