package rest

import (
	"net/http"

	executionApp "github.com/fd1az/paybridge/business/execution/app"
	"github.com/fd1az/paybridge/business/execution/infra/auth"
	"github.com/fd1az/paybridge/internal/apperror"
)

type executionRequest struct {
	Envelope      string `json:"envelope"`
	DepositTxHash string `json:"depositTxHash,omitempty"`
}

type executionResponse struct {
	TransactionHash string `json:"transactionHash"`
}

func (s *Server) handleExecutionCreate(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r.Header.Get("Authorization"))

	var req executionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Envelope == "" {
		s.writeError(w, r, apperror.New(apperror.CodeRequiredField, apperror.WithMessage("envelope is required")))
		return
	}

	res, err := s.executions.Execute(r.Context(), executionApp.ExecuteRequest{
		Envelope:      req.Envelope,
		AuthToken:     token,
		DepositTxHash: req.DepositTxHash,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, executionResponse{TransactionHash: res.TxHash})
}
