package domain

import (
	"context"
	"strings"
	"time"
)

// SwapLockTimeout bounds the soft claim reservation set by LockSwap. The lock
// is a cooperative hint only, it provides no mutual exclusion guarantee.
const SwapLockTimeout = 30 * time.Second

type SwapState int

const (
	SwapCreated SwapState = iota
	SwapSubmitting
	SwapOpen
	SwapExecuting
	SwapCanceling
	SwapExecuted
	SwapCanceled
)

func (s SwapState) String() string {
	switch s {
	case SwapCreated:
		return "created"
	case SwapSubmitting:
		return "submitting"
	case SwapOpen:
		return "open"
	case SwapExecuting:
		return "executing"
	case SwapCanceling:
		return "canceling"
	case SwapExecuted:
		return "executed"
	case SwapCanceled:
		return "canceled"
	}
	return "unknown"
}

// Swap is the off-chain record of a p2p swap offer. The on-chain contract is
// the authority for the Submitted, Executed and Canceled flags; everything
// else is bookkeeping owned by this service. All timestamps are unix millis.
type Swap struct {
	Id           string `json:"id"`
	LinkId       string `json:"linkId"`
	Network      string `json:"network"`
	CreationTime int64  `json:"creationTime"`

	// Version is the optimistic concurrency token. Every write must present
	// the version it read; the store bumps it on success.
	Version uint64 `json:"version"`

	UserId1  string `json:"userId1"`
	UserId2  string `json:"userId2,omitempty"`
	Address1 string `json:"address1"`

	Currency1 string `json:"currency1"`
	Token1    string `json:"token1"`
	Symbol1   string `json:"symbol1"`
	Value1    string `json:"value1"`
	Currency2 string `json:"currency2"`
	Token2    string `json:"token2"`
	Symbol2   string `json:"symbol2"`
	Value2    string `json:"value2"`

	Submitted           bool   `json:"submitted"`
	Submitting          bool   `json:"submitting"`
	SubmissionTime      int64  `json:"submissionTime"`
	SubmitTransactionId string `json:"submitTransactionId,omitempty"`

	Executed               bool   `json:"executed"`
	Executing              bool   `json:"executing"`
	ExecutionTime          int64  `json:"executionTime"`
	ExecutionTransactionId string `json:"executionTransactionId,omitempty"`

	Canceled            bool   `json:"canceled"`
	Canceling           bool   `json:"canceling"`
	CancelTime          int64  `json:"cancelTime"`
	CancelTransactionId string `json:"cancelTransactionId,omitempty"`

	LockedByUserId string `json:"lockedByUserId,omitempty"`
	LockTime       int64  `json:"lockTime"`

	// AllTransactions holds every transaction id ever associated with this
	// swap, in insertion order, duplicates suppressed. Entries are never
	// removed.
	AllTransactions []string `json:"allTransactions,omitempty"`
}

// State derives the lifecycle state from the stored flags.
func (s *Swap) State() SwapState {
	switch {
	case s.Executed:
		return SwapExecuted
	case s.Canceled:
		return SwapCanceled
	case s.Executing:
		return SwapExecuting
	case s.Canceling:
		return SwapCanceling
	case s.Submitted:
		return SwapOpen
	case s.Submitting:
		return SwapSubmitting
	}
	return SwapCreated
}

// AddTransaction appends txId to AllTransactions unless already present.
// Reports whether the list changed, so retried client calls stay idempotent.
func (s *Swap) AddTransaction(txId string) bool {
	if txId == "" {
		return false
	}
	for _, id := range s.AllTransactions {
		if id == txId {
			return false
		}
	}
	s.AllTransactions = append(s.AllTransactions, txId)
	return true
}

// LockIsLive reports whether the soft lock is held and not yet expired at now.
func (s *Swap) LockIsLive(now time.Time) bool {
	if s.LockedByUserId == "" {
		return false
	}
	return time.UnixMilli(s.LockTime).Add(SwapLockTimeout).After(now)
}

// ChainSwap is the authoritative on-chain view of a swap, derived from a
// contract read. A nil ChainSwap means the swap is not registered on chain.
type ChainSwap struct {
	Id        string `json:"id"`
	Address1  string `json:"address1"`
	Token1    string `json:"token1"`
	Value1    string `json:"value1"`
	Value1Raw string `json:"value1Raw"`
	Address2  string `json:"address2,omitempty"`
	Token2    string `json:"token2"`
	Value2    string `json:"value2"`
	Value2Raw string `json:"value2Raw"`
	Executed  bool   `json:"executed"`
	Canceled  bool   `json:"canceled"`
}

// ParseCurrency splits a "NETWORK:tokenAddress" currency identifier.
func ParseCurrency(currency string) (network, token string, err error) {
	parts := strings.SplitN(currency, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", Validationf("invalid currency %q, expected NETWORK:address", currency)
	}
	return parts[0], strings.ToLower(parts[1]), nil
}

// SwapRepository stores swap offers keyed by id, addressable by link id.
type SwapRepository interface {
	// Add persists a new swap. Fails with a ConflictError if the id exists.
	Add(ctx context.Context, swap Swap) error
	// GetByLinkId returns the swap or a NotFoundError.
	GetByLinkId(ctx context.Context, linkId string) (*Swap, error)
	// GetActiveByUser returns the link ids of swaps owned by userId that are
	// neither executed nor canceled.
	GetActiveByUser(ctx context.Context, userId string) ([]string, error)
	// GetUnsettled returns swaps that are neither executed nor canceled and
	// have at least one transaction id on file, for background resync.
	GetUnsettled(ctx context.Context) ([]Swap, error)
	// UpdateIfVersion writes the swap only if the stored version matches
	// swap.Version, then bumps the version. A mismatch yields a ConflictError
	// and leaves the stored record untouched.
	UpdateIfVersion(ctx context.Context, swap Swap) (*Swap, error)
	Close()
}
