package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	settlement "github.com/fd1az/paybridge/business/settlement/domain"
)

type transactionView struct {
	TransactionHash   string    `json:"transactionHash"`
	RequestID         string    `json:"requestId"`
	Provider          string    `json:"provider"`
	FromChain         uint64    `json:"fromChain"`
	ToChain           uint64    `json:"toChain"`
	FromAsset         string    `json:"fromAsset"`
	ToAsset           string    `json:"toAsset"`
	FromAddress       string    `json:"fromAddress"`
	ToAddress         string    `json:"toAddress"`
	FromAmount        string    `json:"fromAmount"`
	ToAmount          string    `json:"toAmount"`
	PlatformFee       string    `json:"platformFee"`
	ProviderFee       string    `json:"providerFee"`
	DepositAddress    string    `json:"depositAddress,omitempty"`
	DestinationTxHash string    `json:"destinationTxHash,omitempty"`
	MerchantAddress   string    `json:"merchantAddress"`
	SourceStatus      string    `json:"sourceStatus"`
	FinalStatus       string    `json:"finalStatus"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (s *Server) handleTransactionGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, newTransactionView(rec))
}

func newTransactionView(rec settlement.Record) transactionView {
	return transactionView{
		TransactionHash:   rec.TxHash,
		RequestID:         rec.RequestID,
		Provider:          rec.Provider,
		FromChain:         rec.FromChain,
		ToChain:           rec.ToChain,
		FromAsset:         rec.FromAsset,
		ToAsset:           rec.ToAsset,
		FromAddress:       rec.FromAddress,
		ToAddress:         rec.ToAddress,
		FromAmount:        rec.FromAmount,
		ToAmount:          rec.ToAmount,
		PlatformFee:       rec.PlatformFee,
		ProviderFee:       rec.ProviderFee,
		DepositAddress:    rec.DepositAddress,
		DestinationTxHash: rec.DestinationTxHash,
		MerchantAddress:   rec.MerchantAddress,
		SourceStatus:      string(rec.SourceStatus),
		FinalStatus:       string(rec.FinalStatus),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
