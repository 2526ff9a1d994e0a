package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("customer not found")

	ErrDuplicateDNI = errors.New("national ID already registered to another customer")

	ErrDuplicateEmail = errors.New("email already registered to another customer")
)

// CustomerRepository is the persistence boundary. Uniqueness of dni and email
// is ultimately enforced by the storage layer; the existence checks here are
// the advisory fast path.
type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	Update(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID uuid.UUID) (*Customer, error)

	FindPage(ctx context.Context, limit, offset int) ([]*Customer, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	ExistsByDNI(ctx context.Context, dni string) (bool, error)

	DeleteByID(ctx context.Context, customerID uuid.UUID) error

	CountAll(ctx context.Context) (int64, error)
}
