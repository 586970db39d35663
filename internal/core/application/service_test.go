package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

func TestSignIn(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	result, err := env.svc.SignIn(ctx, "wallet-token")
	require.NoError(t, err)
	require.Equal(t, "user-1", result.Profile.UserId)
	require.Equal(t, "session-user-1", result.Session)
	require.Equal(t, []string{created.LinkId}, result.ActiveSwaps)
}

func TestCreateSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	swap, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	// tokens are normalized to lowercase, terms provisional until synced
	require.Equal(t, "0xaaa", swap.Token1)
	require.Equal(t, "0xbbb", swap.Token2)
	require.Equal(t, "100", swap.Value1)
	require.Equal(t, "50", swap.Value2)
	require.Equal(t, "ETHEREUM", swap.Network)
	require.Equal(t, "user-1", swap.UserId1)
	require.Equal(t, "0x1111111111111111111111111111111111111111", swap.Address1)
	require.Equal(t, "AAA", swap.Symbol1)
	require.Equal(t, "BBB", swap.Symbol2)
	require.False(t, swap.Submitted)
	require.Equal(t, domain.SwapCreated, swap.State())
	require.Equal(t, uint64(0), swap.Version)
	require.Equal(t, testTime.UnixMilli(), swap.CreationTime)

	stored := env.repo.get(swap.Id)
	require.Equal(t, swap.LinkId, stored.LinkId)
}

func TestCreateSwapValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	var validation *domain.ValidationError

	_, err := env.svc.CreateSwap(ctx, "wallet-token", "", "100", "ETHEREUM:0xBBB", "50")
	require.ErrorAs(t, err, &validation)

	// wallet has no address for this currency
	_, err = env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xCCC", "100", "ETHEREUM:0xBBB", "50")
	require.ErrorAs(t, err, &validation)
	require.Contains(t, err.Error(), "no address for currency")
}

func TestGetSwapRoundTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	// chain absent: the synchronized view equals the created record with
	// submitted explicitly false, and nothing gets persisted
	got, err := env.svc.GetSwap(ctx, created.LinkId)
	require.NoError(t, err)
	require.False(t, got.Submitted)
	require.False(t, got.Submitting)
	require.Equal(t, created.Version, got.Version)
	require.Equal(t, *created, *got)
}

func TestGetSwapSelfHeals(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	env.oracle.swaps[created.Id] = &domain.ChainSwap{
		Id:     created.Id,
		Token1: "0xaaa", Value1: "100",
		Token2: "0xbbb", Value2: "50",
	}

	got, err := env.svc.GetSwap(ctx, created.LinkId)
	require.NoError(t, err)
	require.True(t, got.Submitted)
	require.Equal(t, domain.SwapOpen, got.State())

	// divergence was written back with a version bump
	stored := env.repo.get(created.Id)
	require.True(t, stored.Submitted)
	require.Equal(t, created.Version+1, stored.Version)
}

func TestSubmitSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	requestId, err := env.svc.SubmitSwap(ctx, "wallet-token", created.LinkId)
	require.NoError(t, err)
	require.Equal(t, "request-1", requestId)
	require.Equal(t, 1, env.oracle.registerCalls)
	require.Len(t, env.wallet.sentTxs, 1)
	require.Len(t, env.wallet.sentTxs[0], 2)
}

func TestSubmitSwapAlreadyOnChain(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)
	env.oracle.swaps[created.Id] = &domain.ChainSwap{Id: created.Id}

	_, err = env.svc.SubmitSwap(ctx, "wallet-token", created.LinkId)
	var chainState *domain.ChainStateError
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "already on chain")
	require.Zero(t, env.oracle.registerCalls)
	require.Empty(t, env.wallet.sentTxs)
}

func TestSubmitSwapPendingSubmitTx(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)
	_, err = env.svc.AddSubmitSwapTransactions(ctx, created.LinkId, "0xtx1", "")
	require.NoError(t, err)
	env.tracker.statuses["0xtx1"] = ports.TxStatusPending

	_, err = env.svc.SubmitSwap(ctx, "wallet-token", created.LinkId)
	var chainState *domain.ChainStateError
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "pending transaction")

	// a confirmed submit tx blocks the same way even while the chain read lags
	env.tracker.statuses["0xtx1"] = ports.TxStatusSuccessful
	_, err = env.svc.SubmitSwap(ctx, "wallet-token", created.LinkId)
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "successful transaction")
}

func TestCloseSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	closed, err := env.svc.CloseSwap(ctx, "user-1", created.LinkId)
	require.NoError(t, err)
	require.True(t, closed.Canceled)
	require.Equal(t, testTime.UnixMilli(), closed.CancelTime)
	require.Equal(t, domain.SwapCanceled, closed.State())
}

func TestCloseSwapRejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	_, err = env.svc.CloseSwap(ctx, "user-2", created.LinkId)
	var authz *domain.AuthorizationError
	require.ErrorAs(t, err, &authz)

	env.oracle.swaps[created.Id] = &domain.ChainSwap{Id: created.Id}
	_, err = env.svc.CloseSwap(ctx, "user-1", created.LinkId)
	var chainState *domain.ChainStateError
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "already on chain")
}

func TestAddApproveTransactionIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	first, err := env.svc.AddApproveTransaction(ctx, created.LinkId, "0xapprove")
	require.NoError(t, err)
	require.Equal(t, []string{"0xapprove"}, first.AllTransactions)

	// replaying the same id is a no-op, no duplicate and no version bump
	second, err := env.svc.AddApproveTransaction(ctx, created.LinkId, "0xapprove")
	require.NoError(t, err)
	require.Equal(t, []string{"0xapprove"}, second.AllTransactions)
	require.Equal(t, first.Version, second.Version)
}

func TestAddSubmitSwapTransactions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	updated, err := env.svc.AddSubmitSwapTransactions(ctx, created.LinkId, "0xsubmit", "0xapprove")
	require.NoError(t, err)
	require.Equal(t, "0xsubmit", updated.SubmitTransactionId)
	require.Equal(t, testTime.UnixMilli(), updated.SubmissionTime)
	require.Equal(t, []string{"0xsubmit", "0xapprove"}, updated.AllTransactions)

	// the approval id is optional
	updated, err = env.svc.AddSubmitSwapTransactions(ctx, created.LinkId, "0xsubmit2", "")
	require.NoError(t, err)
	require.Equal(t, []string{"0xsubmit", "0xapprove", "0xsubmit2"}, updated.AllTransactions)
}

func TestStaleVersionWrite(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	// a concurrent writer bumps the stored version
	_, err = env.svc.AddApproveTransaction(ctx, created.LinkId, "0xother")
	require.NoError(t, err)

	stale := *created
	stale.AddTransaction("0xstale")
	_, err = env.repo.UpdateIfVersion(ctx, stale)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	// the losing write left no trace
	require.Equal(t, []string{"0xother"}, env.repo.get(created.Id).AllTransactions)
}

func TestSubmitCancelSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	var chainState *domain.ChainStateError
	_, err = env.svc.SubmitCancelSwap(ctx, "wallet-token", created.LinkId)
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "not on chain")

	env.oracle.swaps[created.Id] = &domain.ChainSwap{Id: created.Id}
	requestId, err := env.svc.SubmitCancelSwap(ctx, "wallet-token", created.LinkId)
	require.NoError(t, err)
	require.Equal(t, "request-1", requestId)
	require.Equal(t, 1, env.oracle.cancelCalls)

	// a pending cancel tx blocks a second cancel
	_, err = env.svc.AddSubmitCancelTransactions(ctx, created.LinkId, "0xcancel", "0xapprove")
	require.NoError(t, err)
	env.tracker.statuses["0xcancel"] = ports.TxStatusPending
	_, err = env.svc.SubmitCancelSwap(ctx, "wallet-token", created.LinkId)
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "pending transaction")
}

func TestExecuteSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)
	env.oracle.swaps[created.Id] = &domain.ChainSwap{
		Id: created.Id, Token1: "0xaaa", Token2: "0xbbb", Value1: "100", Value2: "50",
	}

	requestId, err := env.svc.ExecuteSwap(ctx, "wallet-token", created.LinkId)
	require.NoError(t, err)
	require.Equal(t, "request-1", requestId)
	require.Equal(t, 1, env.oracle.executeCalls)
}

func TestExecuteSwapClaimantRecorded(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)
	env.oracle.swaps[created.Id] = &domain.ChainSwap{
		Id: created.Id, Token2: "0xbbb",
		Address2: "0x3333333333333333333333333333333333333333",
	}

	_, err = env.svc.ExecuteSwap(ctx, "wallet-token", created.LinkId)
	var chainState *domain.ChainStateError
	require.ErrorAs(t, err, &chainState)
	require.Contains(t, err.Error(), "already executed")
	require.Zero(t, env.oracle.executeCalls)
}

func TestLockSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	locked, err := env.svc.LockSwap(ctx, "user-2", created.LinkId)
	require.NoError(t, err)
	require.Equal(t, "user-2", locked.LockedByUserId)
	require.Equal(t, testTime.UnixMilli(), locked.LockTime)

	// a live lock held by someone else rejects
	_, err = env.svc.LockSwap(ctx, "user-3", created.LinkId)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Contains(t, err.Error(), "already locked")

	// the holder may refresh its own lock
	_, err = env.svc.LockSwap(ctx, "user-2", created.LinkId)
	require.NoError(t, err)
}

func TestLockSwapExpires(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateSwap(ctx, "wallet-token", "ETHEREUM:0xAAA", "100", "ETHEREUM:0xBBB", "50")
	require.NoError(t, err)

	_, err = env.svc.LockSwap(ctx, "user-2", created.LinkId)
	require.NoError(t, err)

	env.svc.now = func() time.Time { return testTime.Add(domain.SwapLockTimeout + time.Second) }
	locked, err := env.svc.LockSwap(ctx, "user-3", created.LinkId)
	require.NoError(t, err)
	require.Equal(t, "user-3", locked.LockedByUserId)
}

func TestApprove(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requestId, err := env.svc.Approve(ctx, "wallet-token", "ETHEREUM:0xAAA", "100")
	require.NoError(t, err)
	require.Equal(t, "request-1", requestId)

	env.oracle.approveEmpty = true
	_, err = env.svc.Approve(ctx, "wallet-token", "ETHEREUM:0xAAA", "100")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, err.Error(), "already set")
}
