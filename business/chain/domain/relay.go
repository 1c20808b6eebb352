package domain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a prepared contract call.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// RelayRequest asks the relayer to pull Amount of Token from Payer through the
// chain's executor and forward it with Call.
type RelayRequest struct {
	ChainID uint64
	Payer   common.Address
	Token   common.Address
	Amount  *big.Int
	Call    Call
}

// RelayerCredentials is the gas-sponsoring signer for one chain.
type RelayerCredentials struct {
	ChainID        uint64
	Key            *ecdsa.PrivateKey
	From           common.Address
	Executor       common.Address
	MaxGasPrice    *big.Int
	GasLimitBuffer float64
}
