package ports

import (
	"context"

	"github.com/swaplink-labs/swaplink/internal/core/domain"
)

type TxStatus string

const (
	TxStatusPending    TxStatus = "pending"
	TxStatusSuccessful TxStatus = "successful"
	TxStatusFailed     TxStatus = "failed"
	TxStatusUnknown    TxStatus = "unknown"
)

// TransactionRequest is a fee-bearing contract call prepared for signing by
// the external wallet service. Data is 0x-prefixed calldata.
type TransactionRequest struct {
	Network     string `json:"network"`
	Currency    string `json:"currency"`
	From        string `json:"from"`
	To          string `json:"to"`
	Data        string `json:"data"`
	Gas         uint64 `json:"gas"`
	Nonce       uint64 `json:"nonce"`
	Description string `json:"description"`
}

// ChainOracle reads authoritative swap state from the on-chain contract and
// builds the transactions that mutate it. Builders return requests in
// submission order, allowance approvals first.
type ChainOracle interface {
	// GetSwap returns the on-chain record, or nil when the swap id is not
	// registered on chain.
	GetSwap(ctx context.Context, network, swapId string) (*domain.ChainSwap, error)
	RegisterSwapTxs(
		ctx context.Context,
		network, swapId, address1, currency1, value1, currency2, value2 string,
	) ([]TransactionRequest, error)
	ExecuteSwapTxs(ctx context.Context, network, swapId, address2 string) ([]TransactionRequest, error)
	CancelSwapTxs(ctx context.Context, network, swapId string) ([]TransactionRequest, error)
	// ApproveTxs builds allowance approvals only. An empty result means the
	// current allowance already covers the requested value.
	ApproveTxs(ctx context.Context, currency, approver, value string) ([]TransactionRequest, error)
}

// TransactionStatusTracker resolves a previously submitted transaction id.
// Reconciliation re-queries live on every call; results are never cached.
type TransactionStatusTracker interface {
	GetStatus(ctx context.Context, network, txId string, submittedAt int64) (TxStatus, error)
}
