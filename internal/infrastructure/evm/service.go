package evm

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
)

// ethBackend is the subset of the Ethereum RPC client used by the oracle and
// the status tracker.
type ethBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

type tokenMeta struct {
	decimals uint8
	symbol   string
}

// Service implements ports.ChainOracle and ports.TransactionStatusTracker
// over one RPC client per configured network.
type Service struct {
	backends  map[string]ethBackend
	contracts map[string]common.Address

	swapAbi  abi.ABI
	erc20Abi abi.ABI

	// token metadata is immutable, cached for the process lifetime
	tokenMu sync.RWMutex
	tokens  map[string]tokenMeta
}

func NewService(rpcUrls, swapContracts map[string]string) (*Service, error) {
	backends := make(map[string]ethBackend, len(rpcUrls))
	for network, url := range rpcUrls {
		client, err := ethclient.Dial(url)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to connect to %s rpc", network)
		}
		backends[network] = client
	}

	contracts := make(map[string]common.Address, len(swapContracts))
	for network, addr := range swapContracts {
		if !common.IsHexAddress(addr) {
			return nil, errors.Errorf("invalid swap contract address %s for network %s", addr, network)
		}
		contracts[network] = common.HexToAddress(addr)
	}

	return newService(backends, contracts)
}

func newService(backends map[string]ethBackend, contracts map[string]common.Address) (*Service, error) {
	swapAbi, err := abi.JSON(strings.NewReader(p2pSwapABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse swap contract ABI")
	}
	erc20Abi, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ERC20 ABI")
	}

	return &Service{
		backends:  backends,
		contracts: contracts,
		swapAbi:   swapAbi,
		erc20Abi:  erc20Abi,
		tokens:    make(map[string]tokenMeta),
	}, nil
}

func (s *Service) backend(network string) (ethBackend, error) {
	backend, ok := s.backends[network]
	if !ok {
		return nil, domain.Validationf("no rpc endpoint is configured for network %s", network)
	}
	return backend, nil
}

func (s *Service) contract(network string) (common.Address, error) {
	contract, ok := s.contracts[network]
	if !ok {
		return common.Address{}, domain.Validationf("no contract address is configured for network %s", network)
	}
	return contract, nil
}

// tokenMeta resolves decimals and symbol for a token, caching forever.
func (s *Service) tokenMeta(ctx context.Context, network, token string) (tokenMeta, error) {
	key := network + ":" + strings.ToLower(token)

	s.tokenMu.RLock()
	meta, ok := s.tokens[key]
	s.tokenMu.RUnlock()
	if ok {
		return meta, nil
	}

	backend, err := s.backend(network)
	if err != nil {
		return tokenMeta{}, err
	}
	tokenAddr := common.HexToAddress(token)

	var decimals uint8
	res, err := s.callERC20(ctx, backend, tokenAddr, "decimals")
	if err != nil {
		return tokenMeta{}, errors.Wrapf(err, "failed to get decimals of token %s", token)
	}
	if err := s.erc20Abi.UnpackIntoInterface(&decimals, "decimals", res); err != nil {
		return tokenMeta{}, errors.Wrap(err, "failed to decode decimals")
	}

	var symbol string
	res, err = s.callERC20(ctx, backend, tokenAddr, "symbol")
	if err != nil {
		return tokenMeta{}, errors.Wrapf(err, "failed to get symbol of token %s", token)
	}
	if err := s.erc20Abi.UnpackIntoInterface(&symbol, "symbol", res); err != nil {
		return tokenMeta{}, errors.Wrap(err, "failed to decode symbol")
	}

	meta = tokenMeta{decimals: decimals, symbol: symbol}
	s.tokenMu.Lock()
	s.tokens[key] = meta
	s.tokenMu.Unlock()
	return meta, nil
}

func (s *Service) callERC20(
	ctx context.Context, backend ethBackend, token common.Address, method string, args ...any,
) ([]byte, error) {
	data, err := s.erc20Abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s call", method)
	}
	return backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
}

func (s *Service) allowance(
	ctx context.Context, backend ethBackend, token, owner, spender common.Address,
) (*big.Int, error) {
	res, err := s.callERC20(ctx, backend, token, "allowance", owner, spender)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call allowance")
	}
	var allowance *big.Int
	if err := s.erc20Abi.UnpackIntoInterface(&allowance, "allowance", res); err != nil {
		return nil, errors.Wrap(err, "failed to decode allowance")
	}
	return allowance, nil
}
