// Package asset provides a type-safe model for on-chain assets across chain families.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (API, parsing, display).
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for addresses that do not fit their chain family.
var ErrInvalidAddress = errors.New("asset: invalid address for chain")

// AssetID uniquely identifies an asset by chain and contract (or mint) address.
// Native coins have an empty address. EVM addresses are stored checksummed so
// that equality does not depend on the caller's casing.
type AssetID struct {
	chainID uint64
	address string
}

// NewNativeAssetID creates an AssetID for a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for a token contract.
func NewTokenAssetID(chainID uint64, address string) (AssetID, error) {
	normalized, err := NormalizeAddress(chainID, address)
	if err != nil {
		return AssetID{}, err
	}
	if normalized == "" || IsZeroEVMAddress(normalized) {
		return NewNativeAssetID(chainID), nil
	}
	return AssetID{chainID: chainID, address: normalized}, nil
}

// MustTokenAssetID is NewTokenAssetID for package-level literals.
func MustTokenAssetID(chainID uint64, address string) AssetID {
	id, err := NewTokenAssetID(chainID, address)
	if err != nil {
		panic(err)
	}
	return id
}

// NewFiatAssetID creates an AssetID for an off-chain currency.
func NewFiatAssetID(symbol string) AssetID {
	return AssetID{chainID: ChainIDFiat, address: strings.ToUpper(symbol)}
}

// NormalizeAddress validates address against the chain family and returns its canonical form.
func NormalizeAddress(chainID uint64, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", nil
	}
	switch FamilyOf(chainID) {
	case FamilyEVM:
		if !common.IsHexAddress(address) {
			return "", fmt.Errorf("%w: %q on chain %d", ErrInvalidAddress, address, chainID)
		}
		return common.HexToAddress(address).Hex(), nil
	case FamilyTron:
		if !strings.HasPrefix(address, "T") || len(address) != 34 {
			return "", fmt.Errorf("%w: %q on chain %d", ErrInvalidAddress, address, chainID)
		}
		return address, nil
	default:
		if strings.ContainsAny(address, " \t\n") {
			return "", fmt.Errorf("%w: %q on chain %d", ErrInvalidAddress, address, chainID)
		}
		return address, nil
	}
}

// IsZeroEVMAddress reports whether s is the all-zero hex address.
func IsZeroEVMAddress(s string) bool {
	return common.IsHexAddress(s) && common.HexToAddress(s) == (common.Address{})
}

// ChainID returns the chain ID (0 for fiat).
func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the canonical contract address ("" for native coins).
func (id AssetID) Address() string {
	return id.address
}

// EVMAddress returns the address as a go-ethereum type; zero for native coins.
func (id AssetID) EVMAddress() common.Address {
	if id.address == "" || FamilyOf(id.chainID) != FamilyEVM {
		return common.Address{}
	}
	return common.HexToAddress(id.address)
}

// IsNative returns true if this is a native coin.
func (id AssetID) IsNative() bool {
	return id.chainID != ChainIDFiat && id.address == ""
}

// IsToken returns true if this is a token contract.
func (id AssetID) IsToken() bool {
	return id.chainID != ChainIDFiat && id.address != ""
}

// IsFiat returns true if this is a fiat currency.
func (id AssetID) IsFiat() bool {
	return id.chainID == ChainIDFiat
}

// String returns a human-readable representation.
func (id AssetID) String() string {
	switch {
	case id.IsFiat():
		return "fiat:" + id.address
	case id.IsNative():
		return fmt.Sprintf("chain:%d/native", id.chainID)
	default:
		return fmt.Sprintf("chain:%d/%s", id.chainID, id.address)
	}
}

// Equals compares two AssetIDs for equality.
func (id AssetID) Equals(other AssetID) bool {
	return id == other
}
