package ethereum

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/paybridge/internal/config"
)

func TestLoadCredentials(t *testing.T) {
	key, _ := crypto.GenerateKey()
	hexKey := "0x" + hex.EncodeToString(crypto.FromECDSA(key))

	tests := []struct {
		name    string
		chains  map[string]config.ChainConfig
		want    int
		wantErr bool
	}{
		{
			name: "relayer and read-only chain",
			chains: map[string]config.ChainConfig{
				"ethereum": {ChainID: 1, Executor: "0x00000000000000000000000000000000000000e1", Relayer: config.RelayerConfig{PrivateKey: hexKey, MaxGasPriceGwei: 100}},
				"arbitrum": {ChainID: 42161},
			},
			want: 1,
		},
		{
			name: "bad key",
			chains: map[string]config.ChainConfig{
				"ethereum": {ChainID: 1, Executor: "0x00000000000000000000000000000000000000e1", Relayer: config.RelayerConfig{PrivateKey: "zz"}},
			},
			wantErr: true,
		},
		{
			name: "bad executor",
			chains: map[string]config.ChainConfig{
				"ethereum": {ChainID: 1, Executor: "nope", Relayer: config.RelayerConfig{PrivateKey: hexKey}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadCredentials(tt.chains)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			c := got[1]
			if c.From != crypto.PubkeyToAddress(key.PublicKey) {
				t.Errorf("from = %s", c.From.Hex())
			}
			if c.MaxGasPrice.String() != "100000000000" {
				t.Errorf("max gas = %s", c.MaxGasPrice)
			}
		})
	}
}
