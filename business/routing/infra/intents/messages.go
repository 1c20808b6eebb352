package intents

type quoteRequest struct {
	Dry                bool   `json:"dry"`
	SwapType           string `json:"swapType"`
	SlippageTolerance  int    `json:"slippageTolerance"`
	OriginAsset        string `json:"originAsset"`
	DepositType        string `json:"depositType"`
	DestinationAsset   string `json:"destinationAsset"`
	Amount             string `json:"amount"`
	RefundTo           string `json:"refundTo"`
	RefundType         string `json:"refundType"`
	Recipient          string `json:"recipient"`
	RecipientType      string `json:"recipientType"`
	Deadline           string `json:"deadline"`
	Referral           string `json:"referral,omitempty"`
	QuoteWaitingTimeMs int    `json:"quoteWaitingTimeMs,omitempty"`
}

type quote struct {
	DepositAddress string `json:"depositAddress"`
	DepositMemo    string `json:"depositMemo"`
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	MinAmountOut   string `json:"minAmountOut"`
	Deadline       string `json:"deadline"`
	TimeEstimate   int    `json:"timeEstimate"`
}

// quoteResponse is POST /v0/quote.
type quoteResponse struct {
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	Quote     quote  `json:"quote"`
}

type txHash struct {
	Hash string `json:"hash"`
}

type swapDetails struct {
	OriginChainTxHashes      []txHash `json:"originChainTxHashes"`
	DestinationChainTxHashes []txHash `json:"destinationChainTxHashes"`
}

// statusResponse is GET /v0/status.
type statusResponse struct {
	Status      string      `json:"status"`
	SwapDetails swapDetails `json:"swapDetails"`
}
