package handlers

import (
	"context"
	"encoding/json"

	"github.com/swaplink-labs/swaplink/internal/core/domain"
)

type signInPayload struct {
	Token string `json:"token"`
}

func signInToServer(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[signInPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.SignIn(ctx, payload.Token)
}

type createSwapPayload struct {
	Token     string `json:"token"`
	Currency1 string `json:"currency1"`
	Amount1   string `json:"amount1"`
	Currency2 string `json:"currency2"`
	Amount2   string `json:"amount2"`
}

func createSwap(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[createSwapPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.CreateSwap(
		ctx, payload.Token, payload.Currency1, payload.Amount1, payload.Currency2, payload.Amount2,
	)
}

type linkIdPayload struct {
	LinkId string `json:"linkId"`
}

func closeSwap(ctx context.Context, h *Handler, userId string, data json.RawMessage) (any, error) {
	payload, err := decode[linkIdPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.CloseSwap(ctx, userId, payload.LinkId)
}

func getSwap(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[linkIdPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.GetSwap(ctx, payload.LinkId)
}

func lockSwap(ctx context.Context, h *Handler, userId string, data json.RawMessage) (any, error) {
	payload, err := decode[linkIdPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.LockSwap(ctx, userId, payload.LinkId)
}

type tokenLinkPayload struct {
	Token  string `json:"token"`
	LinkId string `json:"linkId"`
}

// requestIdResponse wraps the wallet relay request id returned by the
// transaction-building commands.
type requestIdResponse struct {
	RequestId string `json:"requestId"`
}

func submitSwap(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[tokenLinkPayload](data)
	if err != nil {
		return nil, err
	}
	requestId, err := h.svc.SubmitSwap(ctx, payload.Token, payload.LinkId)
	if err != nil {
		return nil, err
	}
	return requestIdResponse{requestId}, nil
}

func submitCancelSwap(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[tokenLinkPayload](data)
	if err != nil {
		return nil, err
	}
	requestId, err := h.svc.SubmitCancelSwap(ctx, payload.Token, payload.LinkId)
	if err != nil {
		return nil, err
	}
	return requestIdResponse{requestId}, nil
}

func executeSwap(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[tokenLinkPayload](data)
	if err != nil {
		return nil, err
	}
	requestId, err := h.svc.ExecuteSwap(ctx, payload.Token, payload.LinkId)
	if err != nil {
		return nil, err
	}
	return requestIdResponse{requestId}, nil
}

type approvePayload struct {
	Token    string `json:"token"`
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

func approve(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[approvePayload](data)
	if err != nil {
		return nil, err
	}
	requestId, err := h.svc.Approve(ctx, payload.Token, payload.Currency, payload.Value)
	if err != nil {
		return nil, err
	}
	return requestIdResponse{requestId}, nil
}

type addApprovePayload struct {
	LinkId               string `json:"linkId"`
	ApproveTransactionId string `json:"approveTransactionId"`
}

func addApproveTransaction(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[addApprovePayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.AddApproveTransaction(ctx, payload.LinkId, payload.ApproveTransactionId)
}

type addSubmitSwapPayload struct {
	LinkId               string `json:"linkId"`
	SubmitTransactionId  string `json:"submitTransactionId"`
	ApproveTransactionId string `json:"approveTransactionId"`
}

func addSubmitSwapTransactions(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[addSubmitSwapPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.AddSubmitSwapTransactions(
		ctx, payload.LinkId, payload.SubmitTransactionId, payload.ApproveTransactionId,
	)
}

type addSubmitCancelPayload struct {
	LinkId               string `json:"linkId"`
	CancelTransactionId  string `json:"cancelTransactionId"`
	ApproveTransactionId string `json:"approveTransactionId"`
}

func addSubmitCancelTransactions(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[addSubmitCancelPayload](data)
	if err != nil {
		return nil, err
	}
	if payload.ApproveTransactionId == "" {
		return nil, domain.Validationf(`"approveTransactionId" must be provided`)
	}
	return h.svc.AddSubmitCancelTransactions(
		ctx, payload.LinkId, payload.CancelTransactionId, payload.ApproveTransactionId,
	)
}

type addSubmitExecutionPayload struct {
	LinkId                 string `json:"linkId"`
	ExecutionTransactionId string `json:"executionTransactionId"`
	ApproveTransactionId   string `json:"approveTransactionId"`
}

func addSubmitExecutionTransactions(ctx context.Context, h *Handler, _ string, data json.RawMessage) (any, error) {
	payload, err := decode[addSubmitExecutionPayload](data)
	if err != nil {
		return nil, err
	}
	return h.svc.AddSubmitExecutionTransactions(
		ctx, payload.LinkId, payload.ExecutionTransactionId, payload.ApproveTransactionId,
	)
}
