package application

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

// statusFn resolves a transaction id to its current on-chain status.
type statusFn func(ctx context.Context, network, txId string, submittedAt int64) (ports.TxStatus, error)

// merge reconciles the stored record with the on-chain view. Chain state is
// authoritative for the submitted, executed and canceled flags; the in-flight
// submitting, executing and canceling flags are recomputed from live
// transaction statuses. Off-chain bookkeeping (lock, transaction ids,
// AllTransactions) is never touched.
//
// A nil chainSwap means the swap is not registered on chain. In that case
// only the submit flags are revisited: a terminal flag observed from chain in
// the past stays set even if a later chain read comes back empty.
func merge(
	ctx context.Context, swap domain.Swap, chainSwap *domain.ChainSwap, status statusFn,
) (domain.Swap, error) {
	s := swap

	if chainSwap == nil {
		s.Submitted = false
		if s.SubmitTransactionId != "" {
			txStatus, err := status(ctx, s.Network, s.SubmitTransactionId, s.SubmissionTime)
			if err != nil {
				return s, errors.WithMessage(err, "failed to resolve submit transaction status")
			}
			s.Submitting = txStatus == ports.TxStatusPending
		}
		return s, nil
	}

	if swap.Id != chainSwap.Id {
		return s, domain.Validationf("refusing to merge swap %s with chain record %s", swap.Id, chainSwap.Id)
	}

	s.Submitted = true
	s.Submitting = false
	s.Executed = chainSwap.Executed
	s.Executing = false
	s.Canceled = chainSwap.Canceled
	s.Canceling = false
	s.Token1 = chainSwap.Token1
	s.Token2 = chainSwap.Token2
	s.Value1 = chainSwap.Value1
	s.Value2 = chainSwap.Value2

	if !s.Executed && !s.Canceled {
		if s.ExecutionTransactionId != "" {
			txStatus, err := status(ctx, s.Network, s.ExecutionTransactionId, s.ExecutionTime)
			if err != nil {
				return s, errors.WithMessage(err, "failed to resolve execution transaction status")
			}
			s.Executing = txStatus == ports.TxStatusPending
		}
		if s.CancelTransactionId != "" {
			txStatus, err := status(ctx, s.Network, s.CancelTransactionId, s.CancelTime)
			if err != nil {
				return s, errors.WithMessage(err, "failed to resolve cancel transaction status")
			}
			s.Canceling = txStatus == ports.TxStatusPending
		}
	}
	return s, nil
}

// synchronize merges the record with chain truth and, when any of the
// chain-owned flags changed, persists the merged view so the store converges
// on every read. Losing the conditional update to a concurrent writer is not
// an error, the next read starts from the winner's record.
func (s *Service) synchronize(ctx context.Context, swap *domain.Swap) (*domain.Swap, error) {
	chainSwap, err := s.oracle.GetSwap(ctx, swap.Network, swap.Id)
	if err != nil {
		return nil, err
	}

	merged, err := merge(ctx, *swap, chainSwap, s.tracker.GetStatus)
	if err != nil {
		return nil, err
	}

	if merged.Submitted == swap.Submitted &&
		merged.Executed == swap.Executed &&
		merged.Canceled == swap.Canceled {
		return &merged, nil
	}

	updated, err := s.repo().UpdateIfVersion(ctx, merged)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			log.WithField("linkId", swap.LinkId).Debug(
				"skipped persisting chain sync, a concurrent writer won",
			)
			return &merged, nil
		}
		return nil, err
	}
	return updated, nil
}

// SyncPending re-synchronizes every unsettled swap that has transactions in
// flight. Meant to run on a schedule so records whose clients went away still
// converge toward chain state.
func (s *Service) SyncPending(ctx context.Context) {
	swaps, err := s.repo().GetUnsettled(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list unsettled swaps for resync")
		return
	}
	for i := range swaps {
		if _, err := s.synchronize(ctx, &swaps[i]); err != nil {
			log.WithError(err).WithField("linkId", swaps[i].LinkId).Warn("failed to resync swap")
		}
	}
}
