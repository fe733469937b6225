package handlers

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/quorum"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

// Coordinator is the quorum surface the API needs.
type Coordinator interface {
	RegisterOperator(ctx context.Context, id bls.OperatorID, pk *bls.PublicKey, pop *bls.Signature) error
	StartRound(ctx context.Context, msg []byte, deadline time.Time) (*quorum.Handle, error)
	AddPartialSignature(ctx context.Context, roundID string, operator bls.OperatorID, sig *bls.Signature) error
	Round(id string) (quorum.RoundState, error)
}

// TxManager is the transaction surface the API needs.
type TxManager interface {
	Submit(ctx context.Context, req txmgr.TxRequest) (*txmgr.TxHandle, error)
	Handle(id string) (*txmgr.TxHandle, error)
}

type Handler struct {
	logger logging.Logger
	quorum Coordinator
	txs    TxManager
}

// NewHandler creates a new instance of Handler. txs may be nil when the
// node runs without a chain connection.
func NewHandler(logger logging.Logger, coordinator Coordinator, txs TxManager) *Handler {
	return &Handler{logger: logger, quorum: coordinator, txs: txs}
}

func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "avsnode",
		"submissions": h.txs != nil,
	})
}

func (h *Handler) HandleRegisterOperator(c *gin.Context) {
	var req RegisterOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	pk, err := bls.PublicKeyFromBytes(req.PublicKey)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	pop, err := bls.SignatureFromBytes(req.ProofOfPossession)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	id := pk.OperatorID()
	if err := h.quorum.RegisterOperator(c.Request.Context(), id, pk, pop); err != nil {
		h.logger.Warn("Operator registration rejected", "operator", id.Short(), "error", err)
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RegisterOperatorResponse{OperatorID: id})
}

func (h *Handler) HandleStartRound(c *gin.Context) {
	var req StartRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	var deadline time.Time
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		deadline = time.Now().Add(d)
	}
	handle, err := h.quorum.StartRound(c.Request.Context(), req.Message, deadline)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, StartRoundResponse{RoundID: handle.ID()})
}

func (h *Handler) HandleAddSignature(c *gin.Context) {
	var req PartialSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	sig, err := bls.SignatureFromBytes(req.Signature)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	roundID := c.Param("id")
	if err := h.quorum.AddPartialSignature(c.Request.Context(), roundID, req.OperatorID, sig); err != nil {
		h.fail(c, err)
		return
	}
	state, err := h.quorum.Round(roundID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, state)
}

func (h *Handler) HandleGetRound(c *gin.Context) {
	state, err := h.quorum.Round(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) HandleSubmitTx(c *gin.Context) {
	if h.txs == nil {
		h.fail(c, txmgr.ErrManagerStopped)
		return
	}
	var req SubmitTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	txReq := txmgr.TxRequest{
		To:       req.To,
		Data:     req.Data,
		GasLimit: uint64(req.GasLimit),
		Label:    req.Label,
	}
	if req.From != nil {
		txReq.From = *req.From
	}
	if req.Value != nil {
		txReq.Value = (*big.Int)(req.Value)
	}
	handle, err := h.txs.Submit(c.Request.Context(), txReq)
	if err != nil {
		h.logger.Warn("Transaction submission failed", "to", req.To.Hex(), "error", err)
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, SubmitTxResponse{TxID: handle.ID()})
}

func (h *Handler) HandleGetTx(c *gin.Context) {
	if h.txs == nil {
		h.fail(c, txmgr.ErrManagerStopped)
		return
	}
	handle, err := h.txs.Handle(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handle.Status())
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quorum.ErrUnknownRound), errors.Is(err, txmgr.ErrUnknownTx):
		return http.StatusNotFound
	case errors.Is(err, quorum.ErrRoundClosed),
		errors.Is(err, quorum.ErrDuplicateSignature),
		errors.Is(err, quorum.ErrOperatorExists):
		return http.StatusConflict
	case errors.Is(err, quorum.ErrInvalidSignature),
		errors.Is(err, quorum.ErrInvalidProofOfPossession),
		errors.Is(err, quorum.ErrUnknownOperator),
		errors.Is(err, quorum.ErrNoStake),
		errors.Is(err, quorum.ErrInvalidDeadline),
		errors.Is(err, bls.ErrUnknownSigner),
		errors.Is(err, txmgr.ErrNoSigner),
		errors.Is(err, txmgr.ErrReverted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quorum.ErrCoordinatorClosed), errors.Is(err, txmgr.ErrManagerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
