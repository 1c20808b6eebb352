package intents

import (
	"fmt"
	"strings"

	"github.com/fd1az/paybridge/internal/asset"
)

// omftPrefixes are the bridged-token prefixes of the 1Click asset ids.
var omftPrefixes = map[uint64]string{
	asset.ChainIDEthereum:  "eth",
	asset.ChainIDArbitrum:  "arb",
	asset.ChainIDBase:      "base",
	asset.ChainIDOptimism:  "op",
	asset.ChainIDPolygon:   "pol",
	asset.ChainIDBSC:       "bsc",
	asset.ChainIDAvalanche: "avax",
	asset.ChainIDTron:      "tron",
	asset.ChainIDSolana:    "sol",
	asset.ChainIDBitcoin:   "btc",
}

// Non-EVM tokens are keyed by a hash rather than their address.
var knownAssetIDs = map[asset.AssetID]string{
	asset.IDTronUSDT:   "nep141:tron-d28a265909efecdcee7c5028585214ea0b96f015.omft.near",
	asset.IDSolanaUSDC: "nep141:sol-5ce3bf3a31af18be40ba30f721101b4341690186.omft.near",
}

// assetID returns the 1Click asset identifier for a.
func assetID(a *asset.Asset) (string, error) {
	if id, ok := knownAssetIDs[a.ID()]; ok {
		return id, nil
	}
	prefix, ok := omftPrefixes[a.ChainID()]
	if !ok {
		return "", fmt.Errorf("chain %s not supported", asset.ChainName(a.ChainID()))
	}
	if a.IsNative() {
		return "nep141:" + prefix + ".omft.near", nil
	}
	if asset.FamilyOf(a.ChainID()) != asset.FamilyEVM {
		return "", fmt.Errorf("token %s on %s not supported", a.Symbol(), asset.ChainName(a.ChainID()))
	}
	return "nep141:" + prefix + "-" + strings.ToLower(a.Address()) + ".omft.near", nil
}
