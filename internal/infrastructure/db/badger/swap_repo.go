package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const swapDir = "swaps"

type swapRepository struct {
	store *badgerhold.Store
}

func NewSwapRepository(baseDir string, logger badger.Logger) (domain.SwapRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, swapDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open swap store: %s", err)
	}
	return &swapRepository{store}, nil
}

func (r *swapRepository) Add(ctx context.Context, swap domain.Swap) error {
	data := toSwapData(swap)
	if err := r.store.Insert(swap.Id, data); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.Conflictf("swap %s already exists", swap.Id)
		}
		return err
	}
	return nil
}

func (r *swapRepository) GetByLinkId(ctx context.Context, linkId string) (*domain.Swap, error) {
	var data swapData
	err := r.store.FindOne(&data, badgerhold.Where("LinkId").Eq(linkId).Index("LinkId"))
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.NotFoundf("swap with link id %s not found", linkId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get swap: %w", err)
	}

	swap := data.toSwap()
	return &swap, nil
}

func (r *swapRepository) GetActiveByUser(ctx context.Context, userId string) ([]string, error) {
	var dataList []swapData
	query := badgerhold.Where("UserId1").Eq(userId).Index("UserId1").
		And("Canceled").Eq(false).
		And("Executed").Eq(false).
		SortBy("CreationTime")
	if err := r.store.Find(&dataList, query); err != nil {
		return nil, fmt.Errorf("failed to list active swaps: %w", err)
	}

	linkIds := make([]string, 0, len(dataList))
	for _, data := range dataList {
		linkIds = append(linkIds, data.LinkId)
	}
	return linkIds, nil
}

func (r *swapRepository) GetUnsettled(ctx context.Context) ([]domain.Swap, error) {
	var dataList []swapData
	query := badgerhold.Where("Canceled").Eq(false).And("Executed").Eq(false)
	if err := r.store.Find(&dataList, query); err != nil {
		return nil, fmt.Errorf("failed to list unsettled swaps: %w", err)
	}

	var swaps []domain.Swap
	for _, data := range dataList {
		if data.SubmitTransactionId == "" &&
			data.ExecutionTransactionId == "" &&
			data.CancelTransactionId == "" {
			continue
		}
		swaps = append(swaps, data.toSwap())
	}
	return swaps, nil
}

// UpdateIfVersion applies the update inside a single badger transaction so a
// concurrent writer can never interleave between the version check and the
// write.
func (r *swapRepository) UpdateIfVersion(ctx context.Context, swap domain.Swap) (*domain.Swap, error) {
	updated := toSwapData(swap)
	err := r.store.Badger().Update(func(tx *badger.Txn) error {
		var stored swapData
		if err := r.store.TxGet(tx, swap.Id, &stored); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.NotFoundf("swap %s not found", swap.Id)
			}
			return err
		}
		if stored.Version != swap.Version {
			return domain.Conflictf(
				"swap %s was modified concurrently (version %d, expected %d), retry",
				swap.Id, stored.Version, swap.Version,
			)
		}
		updated.Version = stored.Version + 1
		return r.store.TxUpdate(tx, swap.Id, updated)
	})
	if err != nil {
		return nil, err
	}

	result := updated.toSwap()
	return &result, nil
}

func (r *swapRepository) Close() {
	// nolint:all
	r.store.Close()
}

type swapData struct {
	Id           string
	LinkId       string `badgerholdIndex:"LinkId"`
	Network      string
	CreationTime int64
	Version      uint64

	UserId1  string `badgerholdIndex:"UserId1"`
	UserId2  string
	Address1 string

	Currency1 string
	Token1    string
	Symbol1   string
	Value1    string
	Currency2 string
	Token2    string
	Symbol2   string
	Value2    string

	Submitted           bool
	Submitting          bool
	SubmissionTime      int64
	SubmitTransactionId string

	Executed               bool
	Executing              bool
	ExecutionTime          int64
	ExecutionTransactionId string

	Canceled            bool
	Canceling           bool
	CancelTime          int64
	CancelTransactionId string

	LockedByUserId string
	LockTime       int64

	AllTransactions []string
}

func toSwapData(swap domain.Swap) swapData {
	return swapData(swap)
}

func (d swapData) toSwap() domain.Swap {
	return domain.Swap(d)
}
