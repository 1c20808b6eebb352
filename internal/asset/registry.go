package asset

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry indexes the supported assets by ID and by (chain, symbol). It is
// safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	assets  map[AssetID]*Asset
	symbols map[symbolKey]*Asset
}

type symbolKey struct {
	chain  uint64
	symbol string
}

func keyOf(chainID uint64, symbol string) symbolKey {
	return symbolKey{chain: chainID, symbol: strings.ToUpper(symbol)}
}

func NewRegistry() *Registry {
	return &Registry{
		assets:  map[AssetID]*Asset{},
		symbols: map[symbolKey]*Asset{},
	}
}

// Register stores a under its ID. A later registration of the same ID wins,
// which is how configured assets override the built-in ones.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic(ErrNilAsset)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.assets[a.ID()]; ok {
		k := keyOf(prev.ChainID(), prev.Symbol())
		if r.symbols[k] == prev {
			delete(r.symbols, k)
		}
	}
	r.assets[a.ID()] = a
	if k := keyOf(a.ChainID(), a.Symbol()); r.symbols[k] == nil {
		r.symbols[k] = a
	}
}

func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	a, ok := r.assets[id]
	r.mu.RUnlock()
	return a, ok
}

// GetBySymbolAndChain matches the symbol case-insensitively.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	a, ok := r.symbols[keyOf(chainID, symbol)]
	r.mu.RUnlock()
	return a, ok
}

// Lookup resolves ref on chainID. ref is a token address, a symbol, or empty
// (or the zero address) for the native coin.
func (r *Registry) Lookup(chainID uint64, ref string) (*Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsZeroEVMAddress(ref) {
		a, ok := r.Get(NewNativeAssetID(chainID))
		if !ok {
			return nil, fmt.Errorf("asset: chain %d has no native asset", chainID)
		}
		return a, nil
	}

	if id, err := NewTokenAssetID(chainID, ref); err == nil {
		if a, ok := r.Get(id); ok {
			return a, nil
		}
	}
	if a, ok := r.GetBySymbolAndChain(ref, chainID); ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset: unknown asset %q on chain %d", ref, chainID)
}

// PriceSymbols lists each feed symbol once, sorted, for the price stream
// subscription.
func (r *Registry) PriceSymbols() []string {
	r.mu.RLock()
	feeds := make([]string, 0, len(r.assets))
	for _, a := range r.assets {
		feeds = append(feeds, a.PriceSymbol())
	}
	r.mu.RUnlock()

	slices.Sort(feeds)
	return slices.Compact(feeds)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}
