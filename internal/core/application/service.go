package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

// Service orchestrates the swap lifecycle: it validates caller authority,
// asks the chain oracle to build transactions, relays them through the wallet
// service and advances the stored record. Every mutation goes through the
// repository's conditional update, concurrent writers lose with a
// ConflictError and must re-read.
type Service struct {
	repoManager ports.RepoManager
	oracle      ports.ChainOracle
	tracker     ports.TransactionStatusTracker
	wallet      ports.WalletService
	sessions    ports.SessionManager

	now       func() time.Time
	newSwapId func() (string, error)
	newLinkId func() string
}

func NewService(
	repoManager ports.RepoManager,
	oracle ports.ChainOracle,
	tracker ports.TransactionStatusTracker,
	wallet ports.WalletService,
	sessions ports.SessionManager,
) *Service {
	return &Service{
		repoManager: repoManager,
		oracle:      oracle,
		tracker:     tracker,
		wallet:      wallet,
		sessions:    sessions,
		now:         time.Now,
		newSwapId:   randomSwapId,
		newLinkId:   uuid.NewString,
	}
}

func (s *Service) repo() domain.SwapRepository {
	return s.repoManager.Swaps()
}

// SignInResult is the response of a successful server sign-in.
type SignInResult struct {
	Profile     ports.Profile `json:"userProfile"`
	Session     string        `json:"session"`
	ActiveSwaps []string      `json:"activeSwaps"`
}

// SignIn exchanges a wallet token for a server session and returns the
// caller's profile together with their open swap links.
func (s *Service) SignIn(ctx context.Context, token string) (*SignInResult, error) {
	profile, err := s.wallet.SignIn(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(profile.Addresses) == 0 {
		return nil, domain.Authorizationf("wallet profile has no addresses")
	}
	session, err := s.sessions.Issue(profile.UserId)
	if err != nil {
		return nil, err
	}
	activeSwaps, err := s.repo().GetActiveByUser(ctx, profile.UserId)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Profile: *profile, Session: session, ActiveSwaps: activeSwaps}, nil
}

// CreateSwap persists a new off-chain swap offer. The swap is not on chain
// until the initiator submits the register transaction.
func (s *Service) CreateSwap(
	ctx context.Context, token, currency1, amount1, currency2, amount2 string,
) (*domain.Swap, error) {
	for field, value := range map[string]string{
		"currency1": currency1, "amount1": amount1,
		"currency2": currency2, "amount2": amount2,
	} {
		if value == "" {
			return nil, domain.Validationf("%q is required", field)
		}
	}

	profile, err := s.wallet.SignIn(ctx, token)
	if err != nil {
		return nil, err
	}
	address1 := profile.AddressForCurrency(currency1)
	if address1 == nil {
		return nil, domain.Validationf("no address for currency %s", currency1)
	}
	if profile.AddressForCurrency(currency2) == nil {
		return nil, domain.Validationf("no address for currency %s", currency2)
	}

	network, token1, err := domain.ParseCurrency(currency1)
	if err != nil {
		return nil, err
	}
	_, token2, err := domain.ParseCurrency(currency2)
	if err != nil {
		return nil, err
	}

	id, err := s.newSwapId()
	if err != nil {
		return nil, err
	}
	address2 := profile.AddressForCurrency(currency2)
	swap := domain.Swap{
		Id:           id,
		LinkId:       s.newLinkId(),
		Network:      network,
		CreationTime: s.now().UnixMilli(),
		UserId1:      profile.UserId,
		Address1:     address1.Address,
		Currency1:    currency1,
		Token1:       token1,
		Symbol1:      address1.Symbol,
		Value1:       amount1,
		Currency2:    currency2,
		Token2:       token2,
		Symbol2:      address2.Symbol,
		Value2:       amount2,
	}
	if err := s.repo().Add(ctx, swap); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"linkId": swap.LinkId, "network": network}).Debug("created swap")
	return &swap, nil
}

// CloseSwap cancels a swap that never made it on chain. Purely an off-chain
// write, it refuses if the swap is registered or a submit tx is in flight.
func (s *Service) CloseSwap(ctx context.Context, userId, linkId string) (*domain.Swap, error) {
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	if swap.UserId1 != userId {
		return nil, domain.Authorizationf("not your swap")
	}
	if err := s.ensureSwapIsNotSubmitted(ctx, swap); err != nil {
		return nil, err
	}
	chainSwap, err := s.oracle.GetSwap(ctx, swap.Network, swap.Id)
	if err != nil {
		return nil, err
	}
	if chainSwap != nil {
		return nil, domain.ChainStatef("swap is already on chain")
	}

	swap.Canceled = true
	swap.CancelTime = s.now().UnixMilli()
	return s.repo().UpdateIfVersion(ctx, *swap)
}

// SubmitSwap builds the register transactions and relays them to the
// initiator's wallet for signing. Returns the wallet relay request id.
func (s *Service) SubmitSwap(ctx context.Context, token, linkId string) (string, error) {
	profile, err := s.wallet.SignIn(ctx, token)
	if err != nil {
		return "", err
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return "", err
	}
	if swap.UserId1 != profile.UserId {
		return "", domain.Authorizationf("not your swap")
	}
	chainSwap, err := s.oracle.GetSwap(ctx, swap.Network, swap.Id)
	if err != nil {
		return "", err
	}
	if chainSwap != nil {
		return "", domain.ChainStatef("swap is already on chain")
	}
	if err := s.ensureSwapIsNotSubmitted(ctx, swap); err != nil {
		return "", err
	}

	txs, err := s.oracle.RegisterSwapTxs(
		ctx, swap.Network, swap.Id, swap.Address1,
		swap.Currency1, swap.Value1, swap.Currency2, swap.Value2,
	)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"linkId": linkId, "txs": len(txs)}).Debug("submitting register transactions")
	return s.wallet.SendTransactions(ctx, swap.Network, txs)
}

// Approve relays standalone allowance approvals for the given currency.
func (s *Service) Approve(ctx context.Context, token, currency, value string) (string, error) {
	if currency == "" {
		return "", domain.Validationf(`"currency" must be provided`)
	}
	if value == "" {
		return "", domain.Validationf(`"value" must be provided`)
	}
	profile, err := s.wallet.SignIn(ctx, token)
	if err != nil {
		return "", err
	}
	address := profile.AddressForCurrency(currency)
	if address == nil {
		return "", domain.Validationf("no address found for currency %s", currency)
	}
	txs, err := s.oracle.ApproveTxs(ctx, currency, address.Address, value)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return "", domain.Validationf("a higher approval is already set")
	}
	return s.wallet.SendTransactions(ctx, address.Network, txs)
}

// AddApproveTransaction records a standalone approval tx id against the swap.
func (s *Service) AddApproveTransaction(
	ctx context.Context, linkId, approveTransactionId string,
) (*domain.Swap, error) {
	if approveTransactionId == "" {
		return nil, domain.Validationf(`"approveTransactionId" must be provided`)
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	if !swap.AddTransaction(approveTransactionId) {
		return swap, nil
	}
	return s.repo().UpdateIfVersion(ctx, *swap)
}

// AddSubmitSwapTransactions records the register tx id reported by the wallet
// after signing, plus the optional approval that preceded it.
func (s *Service) AddSubmitSwapTransactions(
	ctx context.Context, linkId, submitTransactionId, approveTransactionId string,
) (*domain.Swap, error) {
	if submitTransactionId == "" {
		return nil, domain.Validationf(`"submitTransactionId" must be provided`)
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	swap.SubmitTransactionId = submitTransactionId
	swap.SubmissionTime = s.now().UnixMilli()
	swap.AddTransaction(submitTransactionId)
	swap.AddTransaction(approveTransactionId)
	return s.repo().UpdateIfVersion(ctx, *swap)
}

// AddSubmitCancelTransactions records the cancel tx id and its allowance
// reset.
func (s *Service) AddSubmitCancelTransactions(
	ctx context.Context, linkId, cancelTransactionId, approveTransactionId string,
) (*domain.Swap, error) {
	if cancelTransactionId == "" {
		return nil, domain.Validationf(`"cancelTransactionId" must be provided`)
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	swap.CancelTransactionId = cancelTransactionId
	swap.CancelTime = s.now().UnixMilli()
	swap.AddTransaction(approveTransactionId)
	swap.AddTransaction(cancelTransactionId)
	return s.repo().UpdateIfVersion(ctx, *swap)
}

// AddSubmitExecutionTransactions records the execute tx id reported by the
// claimant's wallet.
func (s *Service) AddSubmitExecutionTransactions(
	ctx context.Context, linkId, executionTransactionId, approveTransactionId string,
) (*domain.Swap, error) {
	if executionTransactionId == "" {
		return nil, domain.Validationf(`"executionTransactionId" must be provided`)
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	swap.ExecutionTransactionId = executionTransactionId
	swap.ExecutionTime = s.now().UnixMilli()
	swap.AddTransaction(executionTransactionId)
	swap.AddTransaction(approveTransactionId)
	return s.repo().UpdateIfVersion(ctx, *swap)
}

// SubmitCancelSwap builds the on-chain cancel transactions for a registered
// swap and relays them to the initiator's wallet.
func (s *Service) SubmitCancelSwap(ctx context.Context, token, linkId string) (string, error) {
	profile, err := s.wallet.SignIn(ctx, token)
	if err != nil {
		return "", err
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return "", err
	}
	if swap.UserId1 != profile.UserId {
		return "", domain.Authorizationf("not your swap")
	}
	chainSwap, err := s.oracle.GetSwap(ctx, swap.Network, swap.Id)
	if err != nil {
		return "", err
	}
	if chainSwap == nil {
		return "", domain.ChainStatef("swap is not on chain")
	}
	if err := s.ensureSwapIsNotCanceled(ctx, swap); err != nil {
		return "", err
	}

	txs, err := s.oracle.CancelSwapTxs(ctx, swap.Network, swap.Id)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"linkId": linkId, "txs": len(txs)}).Debug("submitting cancel transactions")
	return s.wallet.SendTransactions(ctx, swap.Network, txs)
}

// LockSwap places a time-boxed soft claim on a public swap. Acquisition is
// confirmed by returning the updated record; it fails only when a live lock
// is held by someone else. The lock is cooperative, it carries no mutual
// exclusion guarantee.
func (s *Service) LockSwap(ctx context.Context, userId, linkId string) (*domain.Swap, error) {
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if swap.LockIsLive(now) && swap.LockedByUserId != userId {
		return nil, domain.Conflictf("swap is already locked")
	}
	swap.LockedByUserId = userId
	swap.LockTime = now.UnixMilli()
	return s.repo().UpdateIfVersion(ctx, *swap)
}

// ExecuteSwap builds the claim transactions for the counterparty. Open to any
// caller whose wallet holds an address for the counter-asset.
func (s *Service) ExecuteSwap(ctx context.Context, token, linkId string) (string, error) {
	profile, err := s.wallet.SignIn(ctx, token)
	if err != nil {
		return "", err
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return "", err
	}
	chainSwap, err := s.oracle.GetSwap(ctx, swap.Network, swap.Id)
	if err != nil {
		return "", err
	}
	if chainSwap == nil {
		return "", domain.ChainStatef("swap is not on chain")
	}
	if chainSwap.Address2 != "" {
		return "", domain.ChainStatef("swap has a claimant address attached, already executed")
	}

	currency2 := fmt.Sprintf("%s:%s", swap.Network, chainSwap.Token2)
	address2 := profile.AddressForCurrency(currency2)
	if address2 == nil {
		return "", domain.Validationf("no address found for currency %s", currency2)
	}
	if err := s.ensureSwapIsNotCanceled(ctx, swap); err != nil {
		return "", err
	}

	txs, err := s.oracle.ExecuteSwapTxs(ctx, swap.Network, swap.Id, address2.Address)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"linkId": linkId, "txs": len(txs)}).Debug("submitting execute transactions")
	return s.wallet.SendTransactions(ctx, swap.Network, txs)
}

// GetSwap returns the swap synchronized against chain state. Divergence on
// the chain-owned flags is persisted as a side effect, so stored records
// self-heal on read.
func (s *Service) GetSwap(ctx context.Context, linkId string) (*domain.Swap, error) {
	if linkId == "" {
		return nil, domain.Validationf(`"linkId" is required`)
	}
	swap, err := s.repo().GetByLinkId(ctx, linkId)
	if err != nil {
		return nil, err
	}
	return s.synchronize(ctx, swap)
}

// GetActiveSwaps lists the link ids of the caller's non-terminal swaps.
func (s *Service) GetActiveSwaps(ctx context.Context, userId string) ([]string, error) {
	if userId == "" {
		return nil, domain.Validationf(`"userId" is required`)
	}
	return s.repo().GetActiveByUser(ctx, userId)
}

// ensureSwapIsNotSubmitted blocks operations that assume the swap never made
// it on chain while a submit transaction is pending or already confirmed.
func (s *Service) ensureSwapIsNotSubmitted(ctx context.Context, swap *domain.Swap) error {
	if swap.SubmitTransactionId == "" {
		return nil
	}
	status, err := s.tracker.GetStatus(ctx, swap.Network, swap.SubmitTransactionId, swap.SubmissionTime)
	if err != nil {
		return err
	}
	switch status {
	case ports.TxStatusPending:
		return domain.ChainStatef(
			"there is already a pending transaction associated to this swap, wait for transaction %s to complete",
			swap.SubmitTransactionId,
		)
	case ports.TxStatusSuccessful:
		return domain.ChainStatef(
			"there is already a successful transaction associated to this swap, transaction id %s",
			swap.SubmitTransactionId,
		)
	}
	return nil
}

// ensureSwapIsNotCanceled blocks execute and cancel while the swap is
// canceled or a cancel transaction is pending or already confirmed.
func (s *Service) ensureSwapIsNotCanceled(ctx context.Context, swap *domain.Swap) error {
	if swap.Canceled {
		return domain.ChainStatef("swap is already canceled")
	}
	if swap.CancelTransactionId == "" {
		return nil
	}
	status, err := s.tracker.GetStatus(ctx, swap.Network, swap.CancelTransactionId, swap.CancelTime)
	if err != nil {
		return err
	}
	switch status {
	case ports.TxStatusPending:
		return domain.ChainStatef(
			"there is already a pending transaction to cancel this swap, wait for transaction %s to complete",
			swap.CancelTransactionId,
		)
	case ports.TxStatusSuccessful:
		return domain.ChainStatef(
			"there is already a successful transaction to cancel this swap, transaction id %s",
			swap.CancelTransactionId,
		)
	}
	return nil
}

// randomSwapId generates the on-chain swap id, a 0x-prefixed 24 byte random
// hex string.
func randomSwapId() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
