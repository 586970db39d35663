package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

// service talks to the external wallet provider, which owns user identity
// and relays prepared transactions to the user's device for signing.
type service struct {
	baseUrl string
	client  *http.Client
}

func NewService(url string) ports.WalletService {
	return &service{
		baseUrl: strings.TrimRight(url, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type signInRequest struct {
	Token string `json:"token"`
}

type signInResponse struct {
	ports.Profile
	Error string `json:"error"`
}

func (s *service) SignIn(ctx context.Context, token string) (*ports.Profile, error) {
	if token == "" {
		return nil, domain.Validationf(`"token" must be provided`)
	}
	resp, err := sendPostRequest[signInResponse](ctx, s, "/auth/signin", signInRequest{Token: token})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, domain.Authorizationf("wallet sign-in failed: %s", resp.Error)
	}
	if resp.UserId == "" {
		return nil, domain.Authorizationf("wallet sign-in returned no user")
	}
	return &resp.Profile, nil
}

type sendTransactionsRequest struct {
	Network      string                     `json:"network"`
	Transactions []ports.TransactionRequest `json:"transactions"`
}

type sendTransactionsResponse struct {
	RequestId string `json:"requestId"`
	Error     string `json:"error"`
}

func (s *service) SendTransactions(
	ctx context.Context, network string, txs []ports.TransactionRequest,
) (string, error) {
	resp, err := sendPostRequest[sendTransactionsResponse](
		ctx, s, "/transactions/send", sendTransactionsRequest{Network: network, Transactions: txs},
	)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("wallet rejected transactions: %s", resp.Error)
	}
	if resp.RequestId == "" {
		return "", fmt.Errorf("wallet returned no request id")
	}
	return resp.RequestId, nil
}

func sendPostRequest[T any](ctx context.Context, s *service, endpoint string, requestBody any) (*T, error) {
	rawBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseUrl+endpoint, bytes.NewBuffer(rawBody),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resp, err := unmarshalJson[T](res.Body)
	if err != nil {
		return nil, fmt.Errorf("could not parse wallet response with status %d: %v", res.StatusCode, err)
	}
	return resp, nil
}

func unmarshalJson[T any](body io.Reader) (*T, error) {
	rawBody, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var res T
	if err := json.Unmarshal(rawBody, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
