package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"customer-ms/internal/domain/account"
	"customer-ms/internal/pkg/apperrors"

	"github.com/google/uuid"
)

const (
	defaultPageSize  = 20
	customerNotFound = "Customer not found by repository"
	deletedMessage   = "customer deleted successfully"
)

// CustomerUpdate carries the fields supplied on an update request. A nil field
// leaves the corresponding customer field unchanged.
type CustomerUpdate struct {
	GivenName *string
	Surname   *string
	DNI       *string
	Email     *string
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, givenName, surname, dni, email string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context, limit, offset int) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, customerID uuid.UUID, update CustomerUpdate) (*Customer, error)
	DeleteCustomer(ctx context.Context, customerID uuid.UUID) (string, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo     CustomerRepository
	accounts account.AccountClient
	logger   *slog.Logger
}

func NewCustomerService(repo CustomerRepository, accounts account.AccountClient, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if accounts == nil {
		panic("account client cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	return &customerService{
		repo:     repo,
		accounts: accounts,
		logger:   logger.With(slog.String("component", "customerService")),
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, givenName, surname, dni, email string) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	cust, err := NewCustomer(givenName, surname, dni, email)
	if err != nil {
		s.logger.WarnContext(ctx, "Customer field validation failed", slog.Any("error", err))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Customer domain object created", slog.String("customerID", cust.ID.String()))

	// Email is checked before dni; the first failing check wins.
	emailTaken, err := s.repo.ExistsByEmail(ctx, cust.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error checking email uniqueness", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if emailTaken {
		s.logger.WarnContext(ctx, "Conflict: email already registered")
		return nil, apperrors.NewConflictError("email already registered")
	}

	dniTaken, err := s.repo.ExistsByDNI(ctx, cust.DNI)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error checking DNI uniqueness", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check DNI uniqueness: %w", err)
	}
	if dniTaken {
		s.logger.WarnContext(ctx, "Conflict: DNI already registered")
		return nil, apperrors.NewConflictError("DNI already registered")
	}

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully created new customer", slog.String("customerID", cust.ID.String()))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to get customer by ID", slog.String("customerID", customerID.String()))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return nil, apperrors.NewNotFoundError("customer not found")
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customer")
	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context, limit, offset int) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list customers", slog.Int("limit", limit), slog.Int("offset", offset))

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	customers, err := s.repo.FindPage(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, customerID uuid.UUID, update CustomerUpdate) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to update customer", slog.String("customerID", customerID.String()))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found by repository for update")
			return nil, apperrors.NewNotFoundError("not found")
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer for update", slog.Any("error", err))
		return nil, fmt.Errorf("cannot find customer %s to update: %w", customerID, err)
	}

	if update.Email != nil && cust.Email != *update.Email {
		taken, err := s.repo.ExistsByEmail(ctx, *update.Email)
		if err != nil {
			s.logger.ErrorContext(ctx, "Repository error checking email uniqueness", slog.Any("error", err))
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if taken {
			s.logger.WarnContext(ctx, "Conflict: new email already registered to another user")
			return nil, apperrors.NewConflictError("email already registered to another user")
		}
		if err := cust.SetEmail(*update.Email); err != nil {
			s.logger.WarnContext(ctx, "Validation failed for new email", slog.Any("error", err))
			return nil, err
		}
	}

	if update.DNI != nil && cust.DNI != *update.DNI {
		taken, err := s.repo.ExistsByDNI(ctx, *update.DNI)
		if err != nil {
			s.logger.ErrorContext(ctx, "Repository error checking DNI uniqueness", slog.Any("error", err))
			return nil, fmt.Errorf("failed to check DNI uniqueness: %w", err)
		}
		if taken {
			s.logger.WarnContext(ctx, "Conflict: new DNI already registered to another user")
			return nil, apperrors.NewConflictError("DNI already registered to another user")
		}
		if err := cust.SetDNI(*update.DNI); err != nil {
			s.logger.WarnContext(ctx, "Validation failed for new DNI", slog.Any("error", err))
			return nil, err
		}
	}

	if update.GivenName != nil && cust.GivenName != *update.GivenName {
		if err := cust.SetGivenName(*update.GivenName); err != nil {
			s.logger.WarnContext(ctx, "Validation failed for new given name", slog.Any("error", err))
			return nil, err
		}
	}

	if update.Surname != nil && cust.Surname != *update.Surname {
		if err := cust.SetSurname(*update.Surname); err != nil {
			s.logger.WarnContext(ctx, "Validation failed for new surname", slog.Any("error", err))
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Calling repository Update to persist changes")
	if err := s.repo.Update(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save updated customer", slog.Any("error", err))
		if errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "Customer disappeared before update completed")
			return nil, apperrors.NewNotFoundError("not found")
		}
		return nil, fmt.Errorf("failed to save updated customer %s: %w", customerID, err)
	}

	s.logger.InfoContext(ctx, "Successfully updated customer")
	return cust, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID uuid.UUID) (string, error) {
	s.logger.InfoContext(ctx, "Attempting to delete customer", slog.String("customerID", customerID.String()))

	if _, err := s.repo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return "", apperrors.NewNotFoundError("customer does not exist or was already deleted")
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer for delete", slog.Any("error", err))
		return "", fmt.Errorf("cannot find customer %s to delete: %w", customerID, err)
	}

	s.logger.InfoContext(ctx, "Listing accounts held by customer")
	accounts, err := s.accounts.ListByCustomerID(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Account client failed to list accounts", slog.Any("error", err))
		return "", err
	}

	for _, acc := range accounts {
		if acc.Active() {
			s.logger.WarnContext(ctx, "Conflict: customer holds an account with non-zero balance",
				slog.String("accountID", acc.ID.String()))
			return "", apperrors.NewConflictError("accounts must have zero balance to delete customer")
		}
	}

	// Remote deletes run sequentially in the order returned; the first failure
	// aborts and leaves the local record untouched.
	for _, acc := range accounts {
		s.logger.InfoContext(ctx, "Deleting remote account", slog.String("accountID", acc.ID.String()))
		if err := s.accounts.Delete(ctx, acc.ID); err != nil {
			s.logger.ErrorContext(ctx, "Account client failed to delete account", slog.Any("error", err))
			return "", fmt.Errorf("failed to delete account %s: %w", acc.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "Calling repository DeleteByID")
	if err := s.repo.DeleteByID(ctx, customerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "Customer disappeared before local delete completed")
			return "", apperrors.NewNotFoundError("customer does not exist or was already deleted")
		}
		s.logger.ErrorContext(ctx, "Repository failed to delete customer", slog.Any("error", err))
		return "", fmt.Errorf("failed to delete customer %s: %w", customerID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deleted customer")
	return deletedMessage, nil
}
