package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the remote account service's shape, consumed only.
type Account struct {
	ID      uuid.UUID       `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// Active reports whether the account blocks customer deletion.
func (a Account) Active() bool {
	return !a.Balance.IsZero()
}

type AccountClient interface {
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Account, error)

	Delete(ctx context.Context, accountID uuid.UUID) error
}
