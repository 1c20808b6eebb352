package asset

// Asset describes a coin or token on one chain. Identity is the AssetID; the
// symbol is for display, and PriceSymbol names the spot feed that prices it.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
	feed     string
}

// maxDecimals guards against registry typos; no supported asset exceeds 24.
const maxDecimals = 30

// NewAsset panics on an empty symbol or implausible decimals, since assets are
// declared at startup.
func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	switch {
	case symbol == "":
		panic("asset: empty symbol")
	case decimals > maxDecimals:
		panic("asset: decimals above 30 for " + symbol)
	}
	return &Asset{id: id, symbol: symbol, decimals: decimals, feed: symbol}
}

func NewAssetWithName(id AssetID, symbol, name string, decimals uint8) *Asset {
	a := NewAsset(id, symbol, decimals)
	a.name = name
	return a
}

// WithPriceSymbol returns a copy priced off another feed, so bridged USDC
// can follow USD and WETH can follow ETH.
func (a *Asset) WithPriceSymbol(feed string) *Asset {
	c := *a
	if feed != "" {
		c.feed = feed
	}
	return &c
}

func (a *Asset) ID() AssetID         { return a.id }
func (a *Asset) Symbol() string      { return a.symbol }
func (a *Asset) Decimals() uint8     { return a.decimals }
func (a *Asset) PriceSymbol() string { return a.feed }
func (a *Asset) ChainID() uint64     { return a.id.ChainID() }
func (a *Asset) IsNative() bool      { return a.id.IsNative() }
func (a *Asset) String() string      { return a.symbol }

// Name falls back to the symbol when no display name was given.
func (a *Asset) Name() string {
	if a.name != "" {
		return a.name
	}
	return a.symbol
}

// Address is the token contract, empty for a native coin.
func (a *Asset) Address() string { return a.id.Address() }

// Equals compares by AssetID. Two nil assets are equal.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
