package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
)

type RegisterOperatorRequest struct {
	PublicKey         hexutil.Bytes `json:"public_key" binding:"required"`
	ProofOfPossession hexutil.Bytes `json:"proof_of_possession" binding:"required"`
}

type RegisterOperatorResponse struct {
	OperatorID bls.OperatorID `json:"operator_id"`
}

type StartRoundRequest struct {
	Message hexutil.Bytes `json:"message" binding:"required"`
	// Timeout is a Go duration string; empty uses the node default.
	Timeout string `json:"timeout"`
}

type StartRoundResponse struct {
	RoundID string `json:"round_id"`
}

type PartialSignatureRequest struct {
	OperatorID bls.OperatorID `json:"operator_id" binding:"required"`
	Signature  hexutil.Bytes  `json:"signature" binding:"required"`
}

type SubmitTxRequest struct {
	From     *common.Address `json:"from"`
	To       common.Address  `json:"to" binding:"required"`
	Data     hexutil.Bytes   `json:"data"`
	Value    *hexutil.Big    `json:"value"`
	GasLimit hexutil.Uint64  `json:"gas_limit"`
	Label    string          `json:"label"`
}

type SubmitTxResponse struct {
	TxID string `json:"tx_id"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
