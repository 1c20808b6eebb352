package squid

type routeRequest struct {
	FromAddress string `json:"fromAddress"`
	FromChain   string `json:"fromChain"`
	FromToken   string `json:"fromToken"`
	FromAmount  string `json:"fromAmount"`
	ToChain     string `json:"toChain"`
	ToToken     string `json:"toToken"`
	ToAddress   string `json:"toAddress"`
	// Slippage is in percent (1 = 1%).
	Slippage  float64 `json:"slippage,omitempty"`
	QuoteOnly bool    `json:"quoteOnly"`
}

type tokenRef struct {
	Address string `json:"address"`
	ChainID string `json:"chainId"`
}

type cost struct {
	Name   string   `json:"name"`
	Amount string   `json:"amount"`
	Token  tokenRef `json:"token"`
}

type estimate struct {
	FromAmount  string `json:"fromAmount"`
	ToAmount    string `json:"toAmount"`
	ToAmountMin string `json:"toAmountMin"`
	FeeCosts    []cost `json:"feeCosts"`
	GasCosts    []cost `json:"gasCosts"`
}

type transactionRequest struct {
	Target   string `json:"target"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
}

type route struct {
	QuoteID            string              `json:"quoteId"`
	Estimate           estimate            `json:"estimate"`
	TransactionRequest *transactionRequest `json:"transactionRequest"`
}

// routeResponse is POST /v2/route.
type routeResponse struct {
	Route route `json:"route"`
}

type chainLeg struct {
	TransactionID  string `json:"transactionId"`
	TransactionURL string `json:"transactionUrl"`
}

// statusResponse is GET /v2/status.
type statusResponse struct {
	ID                     string   `json:"id"`
	Status                 string   `json:"status"`
	SquidTransactionStatus string   `json:"squidTransactionStatus"`
	FromChain              chainLeg `json:"fromChain"`
	ToChain                chainLeg `json:"toChain"`
}
