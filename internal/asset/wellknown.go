package asset

// Well-known AssetIDs
var (
	IDEthereumETH  = NewNativeAssetID(ChainIDEthereum)
	IDEthereumUSDC = MustTokenAssetID(ChainIDEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	IDEthereumUSDT = MustTokenAssetID(ChainIDEthereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7")
	IDEthereumWETH = MustTokenAssetID(ChainIDEthereum, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	IDArbitrumETH  = NewNativeAssetID(ChainIDArbitrum)
	IDArbitrumUSDC = MustTokenAssetID(ChainIDArbitrum, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	IDArbitrumUSDT = MustTokenAssetID(ChainIDArbitrum, "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")

	IDBaseETH  = NewNativeAssetID(ChainIDBase)
	IDBaseUSDC = MustTokenAssetID(ChainIDBase, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")

	IDOptimismETH  = NewNativeAssetID(ChainIDOptimism)
	IDOptimismUSDC = MustTokenAssetID(ChainIDOptimism, "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85")
	IDOptimismUSDT = MustTokenAssetID(ChainIDOptimism, "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58")

	IDPolygonPOL  = NewNativeAssetID(ChainIDPolygon)
	IDPolygonUSDC = MustTokenAssetID(ChainIDPolygon, "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	IDPolygonUSDT = MustTokenAssetID(ChainIDPolygon, "0xc2132D05D31c914a87C6611C10748AEb04B58e8F")

	IDBSCBNB  = NewNativeAssetID(ChainIDBSC)
	IDBSCUSDC = MustTokenAssetID(ChainIDBSC, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	IDBSCUSDT = MustTokenAssetID(ChainIDBSC, "0x55d398326f99059fF775485246999027B3197955")

	IDTronTRX  = NewNativeAssetID(ChainIDTron)
	IDTronUSDT = MustTokenAssetID(ChainIDTron, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t")

	IDSolanaSOL  = NewNativeAssetID(ChainIDSolana)
	IDSolanaUSDC = MustTokenAssetID(ChainIDSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	IDBitcoinBTC = NewNativeAssetID(ChainIDBitcoin)

	IDUSD = NewFiatAssetID("USD")
)

// Well-known Assets (pre-created instances)
var (
	ETH  = NewAssetWithName(IDEthereumETH, "ETH", "Ethereum", 18)
	USDC = NewAssetWithName(IDEthereumUSDC, "USDC", "USD Coin", 6)
	USDT = NewAssetWithName(IDEthereumUSDT, "USDT", "Tether USD", 6)
	WETH = NewAssetWithName(IDEthereumWETH, "WETH", "Wrapped Ether", 18).WithPriceSymbol("ETH")

	ArbitrumETH  = NewAssetWithName(IDArbitrumETH, "ETH", "Ethereum", 18)
	ArbitrumUSDC = NewAssetWithName(IDArbitrumUSDC, "USDC", "USD Coin", 6)
	ArbitrumUSDT = NewAssetWithName(IDArbitrumUSDT, "USDT", "Tether USD", 6)

	BaseETH  = NewAssetWithName(IDBaseETH, "ETH", "Ethereum", 18)
	BaseUSDC = NewAssetWithName(IDBaseUSDC, "USDC", "USD Coin", 6)

	OptimismETH  = NewAssetWithName(IDOptimismETH, "ETH", "Ethereum", 18)
	OptimismUSDC = NewAssetWithName(IDOptimismUSDC, "USDC", "USD Coin", 6)
	OptimismUSDT = NewAssetWithName(IDOptimismUSDT, "USDT", "Tether USD", 6)

	PolygonPOL  = NewAssetWithName(IDPolygonPOL, "POL", "Polygon", 18)
	PolygonUSDC = NewAssetWithName(IDPolygonUSDC, "USDC", "USD Coin", 6)
	PolygonUSDT = NewAssetWithName(IDPolygonUSDT, "USDT", "Tether USD", 6)

	BSCBNB  = NewAssetWithName(IDBSCBNB, "BNB", "BNB", 18)
	BSCUSDC = NewAssetWithName(IDBSCUSDC, "USDC", "USD Coin", 18)
	BSCUSDT = NewAssetWithName(IDBSCUSDT, "USDT", "Tether USD", 18)

	TronTRX  = NewAssetWithName(IDTronTRX, "TRX", "Tron", 6)
	TronUSDT = NewAssetWithName(IDTronUSDT, "USDT", "Tether USD", 6)

	SolanaSOL  = NewAssetWithName(IDSolanaSOL, "SOL", "Solana", 9)
	SolanaUSDC = NewAssetWithName(IDSolanaUSDC, "USDC", "USD Coin", 6)

	BitcoinBTC = NewAssetWithName(IDBitcoinBTC, "BTC", "Bitcoin", 8)

	USD = NewAssetWithName(IDUSD, "USD", "US Dollar", 2)
)

// DefaultRegistry returns a registry pre-populated with the built-in assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{
		ETH, USDC, USDT, WETH,
		ArbitrumETH, ArbitrumUSDC, ArbitrumUSDT,
		BaseETH, BaseUSDC,
		OptimismETH, OptimismUSDC, OptimismUSDT,
		PolygonPOL, PolygonUSDC, PolygonUSDT,
		BSCBNB, BSCUSDC, BSCUSDT,
		TronTRX, TronUSDT,
		SolanaSOL, SolanaUSDC,
		BitcoinBTC,
		USD,
	} {
		r.Register(a)
	}
	return r
}
