package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

// executeSwapGas is a fixed gas limit for the execute call; estimation from
// the claimant address fails before the approval transaction is mined.
const executeSwapGas = 160_000

// GetSwap reads the authoritative swap record. A zero proposer address on
// chain means the swap id was never registered, reported as (nil, nil).
func (s *Service) GetSwap(ctx context.Context, network, swapId string) (*domain.ChainSwap, error) {
	if swapId == "" {
		return nil, domain.Validationf(`"swapId" must be provided`)
	}
	backend, err := s.backend(network)
	if err != nil {
		return nil, err
	}
	contract, err := s.contract(network)
	if err != nil {
		return nil, err
	}

	data, err := s.swapAbi.Pack("getSwap", common.HexToHash(swapId))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack getSwap call")
	}
	res, err := backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call getSwap")
	}
	if len(res) == 0 {
		return nil, nil
	}

	out, err := s.swapAbi.Unpack("getSwap", res)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode getSwap result")
	}

	address1 := out[0].(common.Address)
	if address1 == (common.Address{}) {
		return nil, nil
	}
	token1 := out[1].(common.Address)
	value1 := out[2].(*big.Int)
	token2 := out[3].(common.Address)
	value2 := out[4].(*big.Int)
	state := out[5].(uint8)
	address2 := out[6].(common.Address)

	meta1, err := s.tokenMeta(ctx, network, token1.Hex())
	if err != nil {
		return nil, err
	}
	meta2, err := s.tokenMeta(ctx, network, token2.Hex())
	if err != nil {
		return nil, err
	}

	chainSwap := &domain.ChainSwap{
		Id:        swapId,
		Address1:  strings.ToLower(address1.Hex()),
		Token1:    strings.ToLower(token1.Hex()),
		Value1:    toHumanAmount(value1, meta1.decimals),
		Value1Raw: value1.String(),
		Token2:    strings.ToLower(token2.Hex()),
		Value2:    toHumanAmount(value2, meta2.decimals),
		Value2Raw: value2.String(),
		Executed:  state == 1,
		Canceled:  state == 2,
	}
	if address2 != (common.Address{}) {
		chainSwap.Address2 = strings.ToLower(address2.Hex())
	}
	return chainSwap, nil
}

// RegisterSwapTxs builds the allowance approvals for the proposer followed by
// the register call, with nonces assigned sequentially from the proposer's
// pending nonce.
func (s *Service) RegisterSwapTxs(
	ctx context.Context,
	network, swapId, address1, currency1, value1, currency2, value2 string,
) ([]ports.TransactionRequest, error) {
	for name, v := range map[string]string{
		"address1": address1, "currency1": currency1, "value1": value1,
		"currency2": currency2, "value2": value2,
	} {
		if v == "" {
			return nil, domain.Validationf("%q must be provided", name)
		}
	}
	net1, token1, err := domain.ParseCurrency(currency1)
	if err != nil {
		return nil, err
	}
	net2, token2, err := domain.ParseCurrency(currency2)
	if err != nil {
		return nil, err
	}
	if net1 != net2 || net1 != network {
		return nil, domain.Validationf("inconsistent network between currencies")
	}
	backend, err := s.backend(network)
	if err != nil {
		return nil, err
	}
	contract, err := s.contract(network)
	if err != nil {
		return nil, err
	}

	meta1, err := s.tokenMeta(ctx, network, token1)
	if err != nil {
		return nil, err
	}
	meta2, err := s.tokenMeta(ctx, network, token2)
	if err != nil {
		return nil, err
	}
	amount1, err := toRawAmount(value1, meta1.decimals)
	if err != nil {
		return nil, err
	}
	amount2, err := toRawAmount(value2, meta2.decimals)
	if err != nil {
		return nil, err
	}

	owner := common.HexToAddress(address1)
	nonce, err := backend.PendingNonceAt(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending nonce")
	}

	requests, nonce, err := s.approvalTxs(
		ctx, backend, network, currency1, common.HexToAddress(token1), owner, contract, amount1, meta1, nonce,
	)
	if err != nil {
		return nil, err
	}

	data, err := s.swapAbi.Pack(
		"registerSwap",
		common.HexToHash(swapId),
		common.HexToAddress(token1), amount1,
		common.HexToAddress(token2), amount2,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack registerSwap call")
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: owner, To: &contract, Data: data})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate registerSwap gas")
	}

	log.WithFields(log.Fields{"network": network, "swapId": swapId}).
		Debug("built register swap transactions")

	requests = append(requests, ports.TransactionRequest{
		Network:  network,
		Currency: currency1,
		From:     address1,
		To:       contract.Hex(),
		Data:     hexutil.Encode(data),
		Gas:      gas,
		Nonce:    nonce,
		Description: fmt.Sprintf(
			"Swap %s %s with %s %s",
			toHumanAmount(amount1, meta1.decimals), meta1.symbol,
			toHumanAmount(amount2, meta2.decimals), meta2.symbol,
		),
	})
	return requests, nil
}

// ExecuteSwapTxs builds the claimant's approval for the counter-asset
// followed by the execute call.
func (s *Service) ExecuteSwapTxs(
	ctx context.Context, network, swapId, address2 string,
) ([]ports.TransactionRequest, error) {
	if address2 == "" {
		return nil, domain.Validationf(`"address2" must be provided`)
	}
	backend, err := s.backend(network)
	if err != nil {
		return nil, err
	}
	contract, err := s.contract(network)
	if err != nil {
		return nil, err
	}

	chainSwap, err := s.GetSwap(ctx, network, swapId)
	if err != nil {
		return nil, err
	}
	if chainSwap == nil {
		return nil, domain.ChainStatef("swap %s is not on chain", swapId)
	}
	if chainSwap.Address2 != "" {
		return nil, domain.ChainStatef("swap already has an executor address attached, already executed")
	}

	meta1, err := s.tokenMeta(ctx, network, chainSwap.Token1)
	if err != nil {
		return nil, err
	}
	meta2, err := s.tokenMeta(ctx, network, chainSwap.Token2)
	if err != nil {
		return nil, err
	}
	amount2, ok := new(big.Int).SetString(chainSwap.Value2Raw, 10)
	if !ok {
		return nil, errors.Errorf("invalid raw value %s on chain swap", chainSwap.Value2Raw)
	}

	claimant := common.HexToAddress(address2)
	nonce, err := backend.PendingNonceAt(ctx, claimant)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending nonce")
	}

	currency2 := network + ":" + chainSwap.Token2
	requests, nonce, err := s.approvalTxs(
		ctx, backend, network, currency2, common.HexToAddress(chainSwap.Token2), claimant, contract, amount2, meta2, nonce,
	)
	if err != nil {
		return nil, err
	}

	data, err := s.swapAbi.Pack("executeSwap", common.HexToHash(swapId))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack executeSwap call")
	}

	log.WithFields(log.Fields{"network": network, "swapId": swapId}).
		Debug("built execute swap transactions")

	requests = append(requests, ports.TransactionRequest{
		Network:  network,
		Currency: currency2,
		From:     address2,
		To:       contract.Hex(),
		Data:     hexutil.Encode(data),
		Gas:      executeSwapGas,
		Nonce:    nonce,
		Description: fmt.Sprintf(
			"Swap %s %s with %s %s",
			chainSwap.Value2, meta2.symbol, chainSwap.Value1, meta1.symbol,
		),
	})
	return requests, nil
}

// CancelSwapTxs builds an allowance reset (only when the proposer still has
// a nonzero allowance towards the contract) followed by the cancel call.
func (s *Service) CancelSwapTxs(
	ctx context.Context, network, swapId string,
) ([]ports.TransactionRequest, error) {
	backend, err := s.backend(network)
	if err != nil {
		return nil, err
	}
	contract, err := s.contract(network)
	if err != nil {
		return nil, err
	}

	chainSwap, err := s.GetSwap(ctx, network, swapId)
	if err != nil {
		return nil, err
	}
	if chainSwap == nil {
		return nil, domain.ChainStatef("swap %s is not on chain", swapId)
	}

	meta1, err := s.tokenMeta(ctx, network, chainSwap.Token1)
	if err != nil {
		return nil, err
	}

	token1 := common.HexToAddress(chainSwap.Token1)
	owner := common.HexToAddress(chainSwap.Address1)
	currency1 := network + ":" + chainSwap.Token1

	allowance, err := s.allowance(ctx, backend, token1, owner, contract)
	if err != nil {
		return nil, err
	}
	nonce, err := backend.PendingNonceAt(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending nonce")
	}

	var requests []ports.TransactionRequest
	if allowance.Sign() > 0 {
		approveData, err := s.erc20Abi.Pack("approve", contract, big.NewInt(0))
		if err != nil {
			return nil, errors.Wrap(err, "failed to pack approve call")
		}
		gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: owner, To: &token1, Data: approveData})
		if err != nil {
			return nil, errors.Wrap(err, "failed to estimate approve gas")
		}
		requests = append(requests, ports.TransactionRequest{
			Network:     network,
			Currency:    currency1,
			From:        chainSwap.Address1,
			To:          strings.ToLower(token1.Hex()),
			Data:        hexutil.Encode(approveData),
			Gas:         gas,
			Nonce:       nonce,
			Description: fmt.Sprintf("Remove all approvals of %s from the swap contract", meta1.symbol),
		})
		nonce++
	}

	data, err := s.swapAbi.Pack("cancelSwap", common.HexToHash(swapId))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack cancelSwap call")
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: owner, To: &contract, Data: data})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate cancelSwap gas")
	}

	log.WithFields(log.Fields{"network": network, "swapId": swapId}).
		Debug("built cancel swap transactions")

	requests = append(requests, ports.TransactionRequest{
		Network:     network,
		Currency:    currency1,
		From:        chainSwap.Address1,
		To:          contract.Hex(),
		Data:        hexutil.Encode(data),
		Gas:         gas,
		Nonce:       nonce,
		Description: fmt.Sprintf("Cancel swap request with ID %s", swapId),
	})
	return requests, nil
}

// ApproveTxs builds standalone allowance approvals towards the swap
// contract. The result is empty when the current allowance already covers
// the requested value.
func (s *Service) ApproveTxs(
	ctx context.Context, currency, approver, value string,
) ([]ports.TransactionRequest, error) {
	network, token, err := domain.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	backend, err := s.backend(network)
	if err != nil {
		return nil, err
	}
	contract, err := s.contract(network)
	if err != nil {
		return nil, err
	}

	meta, err := s.tokenMeta(ctx, network, token)
	if err != nil {
		return nil, err
	}
	amount, err := toRawAmount(value, meta.decimals)
	if err != nil {
		return nil, err
	}

	owner := common.HexToAddress(approver)
	nonce, err := backend.PendingNonceAt(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending nonce")
	}

	requests, _, err := s.approvalTxs(
		ctx, backend, network, currency, common.HexToAddress(token), owner, contract, amount, meta, nonce,
	)
	return requests, err
}

// approvalTxs builds the approvals needed to raise the owner's allowance
// towards spender to amount. No transactions are returned when the current
// allowance already covers it; a nonzero lower allowance is reset to zero
// first, which some tokens require before raising it.
func (s *Service) approvalTxs(
	ctx context.Context,
	backend ethBackend,
	network, currency string,
	token, owner, spender common.Address,
	amount *big.Int,
	meta tokenMeta,
	nonce uint64,
) ([]ports.TransactionRequest, uint64, error) {
	allowance, err := s.allowance(ctx, backend, token, owner, spender)
	if err != nil {
		return nil, nonce, err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil, nonce, nil
	}

	var requests []ports.TransactionRequest
	addApprove := func(value *big.Int, description string) error {
		data, err := s.erc20Abi.Pack("approve", spender, value)
		if err != nil {
			return errors.Wrap(err, "failed to pack approve call")
		}
		gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: owner, To: &token, Data: data})
		if err != nil {
			return errors.Wrap(err, "failed to estimate approve gas")
		}
		requests = append(requests, ports.TransactionRequest{
			Network:     network,
			Currency:    currency,
			From:        strings.ToLower(owner.Hex()),
			To:          strings.ToLower(token.Hex()),
			Data:        hexutil.Encode(data),
			Gas:         gas,
			Nonce:       nonce,
			Description: description,
		})
		nonce++
		return nil
	}

	if allowance.Sign() > 0 {
		if err := addApprove(big.NewInt(0), fmt.Sprintf(
			"Remove current %s approval for the swap contract", meta.symbol,
		)); err != nil {
			return nil, nonce, err
		}
	}
	if err := addApprove(amount, fmt.Sprintf(
		"Approve %s %s for the swap contract", toHumanAmount(amount, meta.decimals), meta.symbol,
	)); err != nil {
		return nil, nonce, err
	}
	return requests, nonce, nil
}
