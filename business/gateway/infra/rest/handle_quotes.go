package rest

import (
	"net/http"

	routingApp "github.com/fd1az/paybridge/business/routing/app"
)

type quoteRequest struct {
	FromAsset       string `json:"fromAsset"`
	FromChain       uint64 `json:"fromChain"`
	FromAddress     string `json:"fromAddress"`
	ToAsset         string `json:"toAsset"`
	ToChain         uint64 `json:"toChain"`
	ToAddress       string `json:"toAddress"`
	ToAmount        string `json:"toAmount"`
	Provider        string `json:"provider,omitempty"`
	MerchantAddress string `json:"merchantAddress,omitempty"`
	MerchantWebhook string `json:"merchantWebhook,omitempty"`
}

type quoteResponse struct {
	Envelope         string `json:"envelope"`
	Provider         string `json:"provider"`
	RequestID        string `json:"requestId"`
	Expiry           int64  `json:"expiry"`
	FromAsset        string `json:"fromAsset"`
	FromAmount       string `json:"fromAmount"`
	FromAmountRaw    string `json:"fromAmountRaw"`
	ToAsset          string `json:"toAsset"`
	ToAmount         string `json:"toAmount"`
	ToAmountEstimate string `json:"toAmountEstimate"`
	ToAmountMin      string `json:"toAmountMin"`
	PlatformFee      string `json:"platformFee"`
	ProviderFee      string `json:"providerFee"`
	DepositAddress   string `json:"depositAddress,omitempty"`
	DepositMemo      string `json:"depositMemo,omitempty"`
}

func (s *Server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.quotes.Quote(r.Context(), routingApp.QuoteRequest{
		FromChain:       req.FromChain,
		FromAsset:       req.FromAsset,
		FromAddress:     req.FromAddress,
		ToChain:         req.ToChain,
		ToAsset:         req.ToAsset,
		ToAddress:       req.ToAddress,
		ToAmount:        req.ToAmount,
		Provider:        req.Provider,
		MerchantAddress: req.MerchantAddress,
		MerchantWebhook: req.MerchantWebhook,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := res.Quote
	JSON(w, http.StatusOK, quoteResponse{
		Envelope:         res.Envelope,
		Provider:         q.Provider,
		RequestID:        q.RequestID,
		Expiry:           q.Expiry.Unix(),
		FromAsset:        q.Route.From.Symbol(),
		FromAmount:       q.FromAmount.Formatted(),
		FromAmountRaw:    q.FromAmount.RawString(),
		ToAsset:          q.Route.To.Symbol(),
		ToAmount:         q.ToAmount.Formatted(),
		ToAmountEstimate: q.ToAmountEstimate.Formatted(),
		ToAmountMin:      q.ToAmountMin.Formatted(),
		PlatformFee:      q.PlatformFee.Formatted(),
		ProviderFee:      q.ProviderFee.Formatted(),
		DepositAddress:   q.Payload.DepositAddress,
		DepositMemo:      q.Payload.DepositMemo,
	})
}
