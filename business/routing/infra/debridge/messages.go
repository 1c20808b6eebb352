package debridge

type tokenAmount struct {
	Address           string `json:"address"`
	Symbol            string `json:"symbol"`
	Decimals          int    `json:"decimals"`
	Amount            string `json:"amount"`
	RecommendedAmount string `json:"recommendedAmount"`
}

type costDetail struct {
	Chain     string `json:"chain"`
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	Type      string `json:"type"`
}

type estimation struct {
	SrcChainTokenIn  tokenAmount  `json:"srcChainTokenIn"`
	DstChainTokenOut tokenAmount  `json:"dstChainTokenOut"`
	CostsDetails     []costDetail `json:"costsDetails"`
}

type tx struct {
	To              string `json:"to"`
	Data            string `json:"data"`
	Value           string `json:"value"`
	AllowanceTarget string `json:"allowanceTarget"`
}

// createTxResponse is GET /v1.0/dln/order/create-tx.
type createTxResponse struct {
	Estimation estimation `json:"estimation"`
	Tx         *tx        `json:"tx"`
	OrderID    string     `json:"orderId"`
	FixFee     string     `json:"fixFee"`
}

type stringValue struct {
	StringValue string `json:"stringValue"`
}

type orderIDsResponse struct {
	OrderIDs []stringValue `json:"orderIds"`
}

type eventMetadata struct {
	TransactionHash stringValue `json:"transactionHash"`
}

type orderResponse struct {
	OrderID                   stringValue   `json:"orderId"`
	State                     string        `json:"state"`
	Status                    string        `json:"status"`
	FulfilledDstEventMetadata eventMetadata `json:"fulfilledDstEventMetadata"`
}
