package ports

import "github.com/swaplink-labs/swaplink/internal/core/domain"

type RepoManager interface {
	Swaps() domain.SwapRepository
	Close()
}
