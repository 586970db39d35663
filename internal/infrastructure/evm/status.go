package evm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

// txLookupGrace is how long after submission a transaction unknown to the
// node is still considered in-flight rather than abandoned. Relayed
// transactions can take a while to show up in the mempool of the node we
// query.
const txLookupGrace = 10 * time.Minute

// GetStatus resolves a submitted transaction id. submittedAt is the unix
// milli timestamp recorded when the transaction was reported submitted; zero
// means unknown. Results are never cached, reconciliation re-queries live.
func (s *Service) GetStatus(
	ctx context.Context, network, txId string, submittedAt int64,
) (ports.TxStatus, error) {
	backend, err := s.backend(network)
	if err != nil {
		return ports.TxStatusUnknown, err
	}
	hash := common.HexToHash(txId)

	_, isPending, err := backend.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			if submittedAt > 0 && time.Since(time.UnixMilli(submittedAt)) < txLookupGrace {
				return ports.TxStatusPending, nil
			}
			return ports.TxStatusUnknown, nil
		}
		return ports.TxStatusUnknown, errors.Wrapf(err, "failed to look up transaction %s", txId)
	}
	if isPending {
		return ports.TxStatusPending, nil
	}

	receipt, err := backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			// mined race between the two calls, report in-flight
			return ports.TxStatusPending, nil
		}
		return ports.TxStatusUnknown, errors.Wrapf(err, "failed to get receipt of %s", txId)
	}
	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return ports.TxStatusSuccessful, nil
	}
	return ports.TxStatusFailed, nil
}
