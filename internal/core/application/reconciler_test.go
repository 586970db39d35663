package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

func statusMap(statuses map[string]ports.TxStatus) statusFn {
	return func(_ context.Context, _, txId string, _ int64) (ports.TxStatus, error) {
		if status, ok := statuses[txId]; ok {
			return status, nil
		}
		return ports.TxStatusUnknown, nil
	}
}

func TestMergeChainAbsent(t *testing.T) {
	ctx := context.Background()
	swap := domain.Swap{
		Id: "0xswap", Network: "ETHEREUM",
		Submitted: true, SubmitTransactionId: "0xtx1", SubmissionTime: 1000,
		LockedByUserId: "user-2", AllTransactions: []string{"0xtx1"},
	}

	// pending submit tx keeps the swap in submitting
	merged, err := merge(ctx, swap, nil, statusMap(map[string]ports.TxStatus{"0xtx1": ports.TxStatusPending}))
	require.NoError(t, err)
	require.False(t, merged.Submitted)
	require.True(t, merged.Submitting)
	require.Equal(t, domain.SwapSubmitting, merged.State())

	// a confirmed submit tx with a lagging chain read stays unsubmitted until
	// the chain catches up, it is not treated as a failure
	merged, err = merge(ctx, swap, nil, statusMap(map[string]ports.TxStatus{"0xtx1": ports.TxStatusSuccessful}))
	require.NoError(t, err)
	require.False(t, merged.Submitted)
	require.False(t, merged.Submitting)

	// off-chain bookkeeping survives untouched
	require.Equal(t, "user-2", merged.LockedByUserId)
	require.Equal(t, []string{"0xtx1"}, merged.AllTransactions)
}

func TestMergeChainPresent(t *testing.T) {
	ctx := context.Background()
	swap := domain.Swap{
		Id: "0xswap", Network: "ETHEREUM",
		Token1: "0xaaa", Value1: "100", Token2: "0xbbb", Value2: "50",
		Submitting: true, SubmitTransactionId: "0xtx1",
	}
	chainSwap := &domain.ChainSwap{
		Id: "0xswap", Token1: "0xaaa", Value1: "99.5", Token2: "0xbbb", Value2: "50",
	}

	merged, err := merge(ctx, swap, chainSwap, statusMap(nil))
	require.NoError(t, err)
	require.True(t, merged.Submitted)
	require.False(t, merged.Submitting)
	// chain values refresh the provisional terms
	require.Equal(t, "99.5", merged.Value1)
	require.Equal(t, domain.SwapOpen, merged.State())
}

func TestMergeInFlightTransitions(t *testing.T) {
	ctx := context.Background()
	swap := domain.Swap{
		Id: "0xswap", Network: "ETHEREUM",
		Submitted: true, ExecutionTransactionId: "0xexec", CancelTransactionId: "0xcancel",
	}
	chainSwap := &domain.ChainSwap{Id: "0xswap"}

	merged, err := merge(ctx, swap, chainSwap, statusMap(map[string]ports.TxStatus{
		"0xexec":   ports.TxStatusPending,
		"0xcancel": ports.TxStatusFailed,
	}))
	require.NoError(t, err)
	require.True(t, merged.Executing)
	require.False(t, merged.Canceling)
	require.Equal(t, domain.SwapExecuting, merged.State())
}

func TestMergeTerminalMonotonicity(t *testing.T) {
	ctx := context.Background()
	swap := domain.Swap{Id: "0xswap", Network: "ETHEREUM", ExecutionTransactionId: "0xexec"}

	// chain reports executed, the record turns terminal
	merged, err := merge(ctx, swap, &domain.ChainSwap{Id: "0xswap", Executed: true}, statusMap(nil))
	require.NoError(t, err)
	require.True(t, merged.Executed)
	require.False(t, merged.Executing)
	require.False(t, merged.Canceled)
	require.Equal(t, domain.SwapExecuted, merged.State())

	// a later empty chain read must not flip the terminal flag back
	again, err := merge(ctx, merged, nil, statusMap(nil))
	require.NoError(t, err)
	require.True(t, again.Executed)
	require.False(t, again.Canceled)
}

func TestMergeMismatchedIds(t *testing.T) {
	ctx := context.Background()
	swap := domain.Swap{Id: "0xswap"}

	_, err := merge(ctx, swap, &domain.ChainSwap{Id: "0xother"}, statusMap(nil))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSyncPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)
	updated, err := env.svc.AddSubmitSwapTransactions(ctx, created.LinkId, "0xsubmit", "")
	require.NoError(t, err)

	// the register tx confirmed and the swap appeared on chain while no
	// client was polling
	env.oracle.swaps[created.Id] = &domain.ChainSwap{
		Id: created.Id, Token1: "0xaaa", Token2: "0xbbb", Value1: "100", Value2: "50",
	}
	env.svc.SyncPending(ctx)

	stored := env.repo.get(created.Id)
	require.True(t, stored.Submitted)
	require.Equal(t, updated.Version+1, stored.Version)
	require.Equal(t, domain.SwapOpen, stored.State())
}
