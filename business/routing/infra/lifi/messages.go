package lifi

type token struct {
	Address  string `json:"address"`
	ChainID  uint64 `json:"chainId"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type feeCost struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Token    token  `json:"token"`
	Included bool   `json:"included"`
}

type gasCost struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
	Token  token  `json:"token"`
}

type estimate struct {
	Tool            string    `json:"tool"`
	FromAmount      string    `json:"fromAmount"`
	ToAmount        string    `json:"toAmount"`
	ToAmountMin     string    `json:"toAmountMin"`
	ApprovalAddress string    `json:"approvalAddress"`
	FeeCosts        []feeCost `json:"feeCosts"`
	GasCosts        []gasCost `json:"gasCosts"`
}

type transactionRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	ChainID  uint64 `json:"chainId"`
	GasLimit string `json:"gasLimit"`
}

// quoteResponse is the subset of GET /v1/quote the adapter reads.
type quoteResponse struct {
	ID                 string              `json:"id"`
	Type               string              `json:"type"`
	Tool               string              `json:"tool"`
	Estimate           estimate            `json:"estimate"`
	TransactionRequest *transactionRequest `json:"transactionRequest"`
}

type transferLeg struct {
	TxHash  string `json:"txHash"`
	ChainID uint64 `json:"chainId"`
}

// statusResponse is GET /v1/status.
type statusResponse struct {
	Status    string      `json:"status"`
	Substatus string      `json:"substatus"`
	Sending   transferLeg `json:"sending"`
	Receiving transferLeg `json:"receiving"`
}
