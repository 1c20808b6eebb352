package asset

import "fmt"

// Family groups chains by account and transaction model.
type Family string

const (
	FamilyEVM     Family = "evm"
	FamilyTron    Family = "tron"
	FamilySolana  Family = "solana"
	FamilyBitcoin Family = "bitcoin"
	FamilyFiat    Family = "fiat"
)

// Programmable reports whether contract calls can be relayed on chains of this family.
func (f Family) Programmable() bool {
	return f == FamilyEVM
}

// Chain is static chain metadata. IDs follow EIP-155 for EVM chains and the
// identifiers used by routing aggregators for everything else.
type Chain struct {
	ID     uint64
	Name   string
	Family Family
}

func (c Chain) String() string {
	return fmt.Sprintf("%s(%d)", c.Name, c.ID)
}

// Chain IDs
const (
	ChainIDFiat      uint64 = 0
	ChainIDEthereum  uint64 = 1
	ChainIDOptimism  uint64 = 10
	ChainIDBSC       uint64 = 56
	ChainIDPolygon   uint64 = 137
	ChainIDBase      uint64 = 8453
	ChainIDArbitrum  uint64 = 42161
	ChainIDAvalanche uint64 = 43114
	ChainIDSepolia   uint64 = 11155111
	ChainIDTron      uint64 = 728126428
	ChainIDSolana    uint64 = 1151111081099710
	ChainIDBitcoin   uint64 = 20000000000001
)

var knownChains = map[uint64]Chain{
	ChainIDEthereum:  {ChainIDEthereum, "ethereum", FamilyEVM},
	ChainIDOptimism:  {ChainIDOptimism, "optimism", FamilyEVM},
	ChainIDBSC:       {ChainIDBSC, "bsc", FamilyEVM},
	ChainIDPolygon:   {ChainIDPolygon, "polygon", FamilyEVM},
	ChainIDBase:      {ChainIDBase, "base", FamilyEVM},
	ChainIDArbitrum:  {ChainIDArbitrum, "arbitrum", FamilyEVM},
	ChainIDAvalanche: {ChainIDAvalanche, "avalanche", FamilyEVM},
	ChainIDSepolia:   {ChainIDSepolia, "sepolia", FamilyEVM},
	ChainIDTron:      {ChainIDTron, "tron", FamilyTron},
	ChainIDSolana:    {ChainIDSolana, "solana", FamilySolana},
	ChainIDBitcoin:   {ChainIDBitcoin, "bitcoin", FamilyBitcoin},
}

// LookupChain returns metadata for a known chain.
func LookupChain(id uint64) (Chain, bool) {
	c, ok := knownChains[id]
	return c, ok
}

// FamilyOf returns the family of a chain, treating unknown non-zero IDs as EVM.
func FamilyOf(id uint64) Family {
	if id == ChainIDFiat {
		return FamilyFiat
	}
	if c, ok := knownChains[id]; ok {
		return c.Family
	}
	return FamilyEVM
}

// ChainName returns a display name, falling back to the numeric id.
func ChainName(id uint64) string {
	if c, ok := knownChains[id]; ok {
		return c.Name
	}
	return fmt.Sprintf("chain-%d", id)
}
