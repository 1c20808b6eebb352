package ethereum

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/paybridge/business/chain/domain"
	"github.com/fd1az/paybridge/internal/config"
)

// LoadCredentials builds the chainId -> relayer credentials map. Chains without
// a private key are read-only and get no entry.
func LoadCredentials(chains map[string]config.ChainConfig) (map[uint64]domain.RelayerCredentials, error) {
	out := make(map[uint64]domain.RelayerCredentials, len(chains))
	for name, c := range chains {
		if c.Relayer.PrivateKey == "" {
			continue
		}
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.Relayer.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("chains.%s.relayer.private_key: %w", name, err)
		}
		if !common.IsHexAddress(c.Executor) {
			return nil, fmt.Errorf("chains.%s.executor: invalid address %q", name, c.Executor)
		}
		if _, dup := out[c.ChainID]; dup {
			return nil, fmt.Errorf("chains.%s: chain id %d configured twice", name, c.ChainID)
		}

		creds := domain.RelayerCredentials{
			ChainID:        c.ChainID,
			Key:            key,
			From:           crypto.PubkeyToAddress(key.PublicKey),
			Executor:       c.ExecutorAddress(),
			GasLimitBuffer: c.Relayer.GasLimitBuffer,
		}
		if c.Relayer.MaxGasPriceGwei > 0 {
			creds.MaxGasPrice = domain.GweiToWei(c.Relayer.MaxGasPriceGwei)
		}
		out[c.ChainID] = creds
	}
	return out, nil
}
