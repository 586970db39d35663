package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

type fakeRepo struct {
	mu    sync.Mutex
	swaps map[string]domain.Swap
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{swaps: make(map[string]domain.Swap)}
}

func (r *fakeRepo) Add(_ context.Context, swap domain.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.swaps[swap.Id]; ok {
		return domain.Conflictf("swap %s already exists", swap.Id)
	}
	r.swaps[swap.Id] = swap
	return nil
}

func (r *fakeRepo) GetByLinkId(_ context.Context, linkId string) (*domain.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, swap := range r.swaps {
		if swap.LinkId == linkId {
			s := swap
			return &s, nil
		}
	}
	return nil, domain.NotFoundf("swap with link id %s not found", linkId)
}

func (r *fakeRepo) GetActiveByUser(_ context.Context, userId string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []domain.Swap
	for _, swap := range r.swaps {
		if swap.UserId1 == userId && !swap.Canceled && !swap.Executed {
			active = append(active, swap)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreationTime < active[j].CreationTime })
	linkIds := make([]string, 0, len(active))
	for _, swap := range active {
		linkIds = append(linkIds, swap.LinkId)
	}
	return linkIds, nil
}

func (r *fakeRepo) GetUnsettled(_ context.Context) ([]domain.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var unsettled []domain.Swap
	for _, swap := range r.swaps {
		if !swap.Canceled && !swap.Executed && len(swap.AllTransactions) > 0 {
			unsettled = append(unsettled, swap)
		}
	}
	return unsettled, nil
}

func (r *fakeRepo) UpdateIfVersion(_ context.Context, swap domain.Swap) (*domain.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.swaps[swap.Id]
	if !ok {
		return nil, domain.NotFoundf("swap %s not found", swap.Id)
	}
	if stored.Version != swap.Version {
		return nil, domain.Conflictf(
			"version mismatch for swap %s, have %d want %d", swap.Id, stored.Version, swap.Version,
		)
	}
	swap.Version++
	r.swaps[swap.Id] = swap
	s := swap
	return &s, nil
}

func (r *fakeRepo) Close() {}

func (r *fakeRepo) get(id string) domain.Swap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.swaps[id]
}

type fakeRepoManager struct {
	repo *fakeRepo
}

func (m *fakeRepoManager) Swaps() domain.SwapRepository { return m.repo }
func (m *fakeRepoManager) Close()                       {}

type fakeOracle struct {
	swaps map[string]*domain.ChainSwap

	registerCalls int
	executeCalls  int
	cancelCalls   int
	approveEmpty  bool
}

func (o *fakeOracle) GetSwap(_ context.Context, _, swapId string) (*domain.ChainSwap, error) {
	return o.swaps[swapId], nil
}

func (o *fakeOracle) RegisterSwapTxs(
	_ context.Context, network, swapId, _, _, _, _, _ string,
) ([]ports.TransactionRequest, error) {
	o.registerCalls++
	return []ports.TransactionRequest{
		{Network: network, Description: "approve", Nonce: 0},
		{Network: network, Description: "register " + swapId, Nonce: 1},
	}, nil
}

func (o *fakeOracle) ExecuteSwapTxs(
	_ context.Context, network, swapId, _ string,
) ([]ports.TransactionRequest, error) {
	o.executeCalls++
	return []ports.TransactionRequest{{Network: network, Description: "execute " + swapId}}, nil
}

func (o *fakeOracle) CancelSwapTxs(
	_ context.Context, network, swapId string,
) ([]ports.TransactionRequest, error) {
	o.cancelCalls++
	return []ports.TransactionRequest{{Network: network, Description: "cancel " + swapId}}, nil
}

func (o *fakeOracle) ApproveTxs(
	_ context.Context, currency, _, _ string,
) ([]ports.TransactionRequest, error) {
	if o.approveEmpty {
		return nil, nil
	}
	return []ports.TransactionRequest{{Description: "approve " + currency}}, nil
}

type fakeTracker struct {
	statuses map[string]ports.TxStatus
}

func (t *fakeTracker) GetStatus(
	_ context.Context, _, txId string, _ int64,
) (ports.TxStatus, error) {
	if status, ok := t.statuses[txId]; ok {
		return status, nil
	}
	return ports.TxStatusUnknown, nil
}

type fakeWallet struct {
	profile   ports.Profile
	sentTxs   [][]ports.TransactionRequest
	requestId string
}

func (w *fakeWallet) SignIn(_ context.Context, token string) (*ports.Profile, error) {
	if token == "" {
		return nil, domain.Validationf(`"token" must be provided`)
	}
	p := w.profile
	return &p, nil
}

func (w *fakeWallet) SendTransactions(
	_ context.Context, _ string, txs []ports.TransactionRequest,
) (string, error) {
	w.sentTxs = append(w.sentTxs, txs)
	return w.requestId, nil
}

type fakeSessions struct{}

func (fakeSessions) Issue(userId string) (string, error) { return "session-" + userId, nil }

func (fakeSessions) Verify(token string) (string, error) {
	var userId string
	if _, err := fmt.Sscanf(token, "session-%s", &userId); err != nil {
		return "", domain.Authorizationf("invalid session token")
	}
	return userId, nil
}

var testTime = time.UnixMilli(1_700_000_000_000)

type testEnv struct {
	svc     *Service
	repo    *fakeRepo
	oracle  *fakeOracle
	tracker *fakeTracker
	wallet  *fakeWallet
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	oracle := &fakeOracle{swaps: make(map[string]*domain.ChainSwap)}
	tracker := &fakeTracker{statuses: make(map[string]ports.TxStatus)}
	wallet := &fakeWallet{
		requestId: "request-1",
		profile: ports.Profile{
			UserId:      "user-1",
			DisplayName: "Alice",
			Addresses: []ports.Address{
				{
					Currency: "ETHEREUM:0xAAA", Symbol: "AAA",
					Address: "0x1111111111111111111111111111111111111111", Network: "ETHEREUM",
				},
				{
					Currency: "ETHEREUM:0xbbb", Symbol: "BBB",
					Address: "0x2222222222222222222222222222222222222222", Network: "ETHEREUM",
				},
				{
					Currency: "ETHEREUM:0xBBB", Symbol: "BBB",
					Address: "0x2222222222222222222222222222222222222222", Network: "ETHEREUM",
				},
			},
		},
	}

	swapIds := 0
	linkIds := 0
	svc := NewService(&fakeRepoManager{repo}, oracle, tracker, wallet, fakeSessions{})
	svc.now = func() time.Time { return testTime }
	svc.newSwapId = func() (string, error) {
		swapIds++
		return fmt.Sprintf("0x%048d", swapIds), nil
	}
	svc.newLinkId = func() string {
		linkIds++
		return fmt.Sprintf("link-%d", linkIds)
	}
	return &testEnv{svc: svc, repo: repo, oracle: oracle, tracker: tracker, wallet: wallet}
}
