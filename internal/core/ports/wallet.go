package ports

import "context"

type Address struct {
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Network  string `json:"network"`
}

type Profile struct {
	UserId      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Addresses   []Address `json:"addresses"`
}

// AddressForCurrency returns the profile address entry for the given
// currency, or nil when the wallet holds none.
func (p *Profile) AddressForCurrency(currency string) *Address {
	for i := range p.Addresses {
		if p.Addresses[i].Currency == currency {
			return &p.Addresses[i]
		}
	}
	return nil
}

// WalletService is the external identity provider and transaction relay. The
// wallet token presented by clients is opaque to this service.
type WalletService interface {
	SignIn(ctx context.Context, token string) (*Profile, error)
	// SendTransactions relays prepared transactions to the user's wallet for
	// signing and returns the relay request id.
	SendTransactions(ctx context.Context, network string, txs []TransactionRequest) (string, error)
}

// SessionManager issues and verifies the bearer session tokens returned by
// signInToServer.
type SessionManager interface {
	Issue(userId string) (string, error)
	Verify(token string) (string, error)
}
