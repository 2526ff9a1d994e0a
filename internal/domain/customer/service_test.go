package customer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"customer-ms/internal/domain/account"
	"customer-ms/internal/domain/customer"
	"customer-ms/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupTest() (*customer.MockCustomerRepository, *customer.MockAccountClient, customer.CustomerService) {
	mockRepo := new(customer.MockCustomerRepository)
	mockAccounts := new(customer.MockAccountClient)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := customer.NewCustomerService(mockRepo, mockAccounts, logger)
	return mockRepo, mockAccounts, service
}

func strPtr(s string) *string {
	return &s
}

func existingCustomer(t *testing.T) *customer.Customer {
	t.Helper()
	cust, err := customer.NewCustomer("John", "Doe", "12345678", "test@example.com")
	if err != nil {
		t.Fatalf("failed to build fixture customer: %v", err)
	}
	return cust
}

func TestCustomerService_CreateCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("ExistsByEmail", ctx, "test@example.com").Return(false, nil).Once()
		mockRepo.On("ExistsByDNI", ctx, "12345678").Return(false, nil).Once()
		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.GivenName == "John" &&
				c.Surname == "Doe" &&
				c.DNI == "12345678" &&
				c.Email == "test@example.com" &&
				c.ID != uuid.Nil
		})).Return(nil).Once()

		created, err := service.CreateCustomer(ctx, "John", "Doe", "12345678", "test@example.com")

		assert.NoError(t, err)
		assert.NotNil(t, created)
		if created != nil {
			assert.NotEqual(t, uuid.Nil, created.ID, "ID must be freshly generated")
			assert.Equal(t, "John", created.GivenName)
			assert.Equal(t, "Doe", created.Surname)
			assert.Equal(t, "12345678", created.DNI)
			assert.Equal(t, "test@example.com", created.Email)
		}
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Invalid Field", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		created, err := service.CreateCustomer(ctx, "", "Doe", "12345678", "test@example.com")

		assert.Nil(t, created)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		mockRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Error - Email Already Registered", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("ExistsByEmail", ctx, "test@example.com").Return(true, nil).Once()

		created, err := service.CreateCustomer(ctx, "John", "Doe", "12345678", "test@example.com")

		assert.Nil(t, created)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		var ce *apperrors.ConflictError
		if assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, "email already registered", ce.Message)
		}
		// Email is checked first; the DNI check never runs when the email conflicts.
		mockRepo.AssertNotCalled(t, "ExistsByDNI", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - DNI Already Registered", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("ExistsByEmail", ctx, "test@example.com").Return(false, nil).Once()
		mockRepo.On("ExistsByDNI", ctx, "12345678").Return(true, nil).Once()

		created, err := service.CreateCustomer(ctx, "John", "Doe", "12345678", "test@example.com")

		assert.Nil(t, created)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		var ce *apperrors.ConflictError
		if assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, "DNI already registered", ce.Message)
		}
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Repository Save Failure", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		dbError := errors.New("database connection failed")

		mockRepo.On("ExistsByEmail", ctx, "test@example.com").Return(false, nil).Once()
		mockRepo.On("ExistsByDNI", ctx, "12345678").Return(false, nil).Once()
		mockRepo.On("Save", ctx, mock.AnythingOfType("*customer.Customer")).Return(dbError).Once()

		created, err := service.CreateCustomer(ctx, "John", "Doe", "12345678", "test@example.com")

		assert.Nil(t, created)
		assert.ErrorIs(t, err, dbError)
		assert.Contains(t, err.Error(), "failed to save new customer")
		mockRepo.AssertExpectations(t)
	})
}

func TestCustomerService_GetCustomer(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		expected := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(expected, nil).Once()

		cust, err := service.GetCustomer(ctx, customerID)

		assert.NoError(t, err)
		assert.Equal(t, expected, cust)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Not Found", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("FindByID", ctx, customerID).Return(nil, customer.ErrNotFound).Once()

		cust, err := service.GetCustomer(ctx, customerID)

		assert.Nil(t, cust)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		var nfe *apperrors.NotFoundError
		if assert.True(t, errors.As(err, &nfe)) {
			assert.Equal(t, "customer not found", nfe.Message)
		}
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Repository Failure", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		dbError := errors.New("database connection failed")

		mockRepo.On("FindByID", ctx, customerID).Return(nil, dbError).Once()

		cust, err := service.GetCustomer(ctx, customerID)

		assert.Nil(t, cust)
		assert.ErrorIs(t, err, dbError)
		mockRepo.AssertExpectations(t)
	})
}

func TestCustomerService_ListCustomers(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		page := []*customer.Customer{existingCustomer(t)}

		mockRepo.On("FindPage", ctx, 10, 5).Return(page, nil).Once()

		customers, err := service.ListCustomers(ctx, 10, 5)

		assert.NoError(t, err)
		assert.Equal(t, page, customers)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Clamps non-positive limit to the default page size", func(t *testing.T) {
		for _, limit := range []int{0, -1, -20} {
			mockRepo, _, service := setupTest()

			mockRepo.On("FindPage", ctx, 20, 0).Return([]*customer.Customer{}, nil).Once()

			_, err := service.ListCustomers(ctx, limit, 0)

			assert.NoError(t, err)
			mockRepo.AssertExpectations(t)
		}
	})

	t.Run("Clamps negative offset to zero", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("FindPage", ctx, 20, 0).Return([]*customer.Customer{}, nil).Once()

		_, err := service.ListCustomers(ctx, 20, -7)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("No upper bound on limit", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("FindPage", ctx, 5000, 0).Return([]*customer.Customer{}, nil).Once()

		_, err := service.ListCustomers(ctx, 5000, 0)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Repository Failure", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		dbError := errors.New("database connection failed")

		mockRepo.On("FindPage", ctx, 20, 0).Return(nil, dbError).Once()

		customers, err := service.ListCustomers(ctx, 0, 0)

		assert.Nil(t, customers)
		assert.ErrorIs(t, err, dbError)
		mockRepo.AssertExpectations(t)
	})
}

func TestCustomerService_UpdateCustomer(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - All Fields", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(existing, nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "new@example.com").Return(false, nil).Once()
		mockRepo.On("ExistsByDNI", ctx, "87654321").Return(false, nil).Once()
		mockRepo.On("Update", ctx, existing).Return(nil).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{
			GivenName: strPtr("Jane"),
			Surname:   strPtr("Smith"),
			DNI:       strPtr("87654321"),
			Email:     strPtr("new@example.com"),
		})

		assert.NoError(t, err)
		assert.NotNil(t, updated)
		if updated != nil {
			assert.Equal(t, "Jane", updated.GivenName)
			assert.Equal(t, "Smith", updated.Surname)
			assert.Equal(t, "87654321", updated.DNI)
			assert.Equal(t, "new@example.com", updated.Email)
		}
		mockRepo.AssertExpectations(t)
	})

	t.Run("Identical email skips the uniqueness check", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(existing, nil).Once()
		mockRepo.On("Update", ctx, existing).Return(nil).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{
			Email: strPtr(existing.Email),
		})

		assert.NoError(t, err)
		assert.NotNil(t, updated)
		mockRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Absent fields are left untouched", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(existing, nil).Once()
		mockRepo.On("Update", ctx, existing).Return(nil).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{
			GivenName: strPtr("Jane"),
		})

		assert.NoError(t, err)
		if assert.NotNil(t, updated) {
			assert.Equal(t, "Jane", updated.GivenName)
			assert.Equal(t, "Doe", updated.Surname)
			assert.Equal(t, "12345678", updated.DNI)
			assert.Equal(t, "test@example.com", updated.Email)
		}
		mockRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "ExistsByDNI", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Not Found", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		mockRepo.On("FindByID", ctx, customerID).Return(nil, customer.ErrNotFound).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		var nfe *apperrors.NotFoundError
		if assert.True(t, errors.As(err, &nfe)) {
			assert.Equal(t, "not found", nfe.Message)
		}
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Email Registered To Another User", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(existing, nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "taken@example.com").Return(true, nil).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{
			GivenName: strPtr("Jane"),
			Email:     strPtr("taken@example.com"),
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		var ce *apperrors.ConflictError
		if assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, "email already registered to another user", ce.Message)
		}

		// The conflict aborts the whole call; nothing is persisted and the
		// other fields stay as they were.
		assert.Equal(t, "John", existing.GivenName)
		assert.Equal(t, "Doe", existing.Surname)
		assert.Equal(t, "12345678", existing.DNI)
		assert.Equal(t, "test@example.com", existing.Email)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - DNI Registered To Another User", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(existing, nil).Once()
		mockRepo.On("ExistsByDNI", ctx, "87654321").Return(true, nil).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{
			DNI: strPtr("87654321"),
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		var ce *apperrors.ConflictError
		if assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, "DNI already registered to another user", ce.Message)
		}
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Invalid New Email", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := existingCustomer(t)

		mockRepo.On("FindByID", ctx, customerID).Return(existing, nil).Once()
		mockRepo.On("ExistsByEmail", ctx, "broken").Return(false, nil).Once()

		updated, err := service.UpdateCustomer(ctx, customerID, customer.CustomerUpdate{
			Email: strPtr("broken"),
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, "test@example.com", existing.Email, "Entity must stay unmodified")
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})
}

func TestCustomerService_DeleteCustomer(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - No Accounts", func(t *testing.T) {
		mockRepo, mockAccounts, service := setupTest()

		mockRepo.On("FindByID", ctx, customerID).Return(existingCustomer(t), nil).Once()
		mockAccounts.On("ListByCustomerID", ctx, customerID).Return([]account.Account{}, nil).Once()
		mockRepo.On("DeleteByID", ctx, customerID).Return(nil).Once()

		msg, err := service.DeleteCustomer(ctx, customerID)

		assert.NoError(t, err)
		assert.Equal(t, "customer deleted successfully", msg)
		mockAccounts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
		mockAccounts.AssertExpectations(t)
	})

	t.Run("Success - Zero Balance Accounts Deleted In Order", func(t *testing.T) {
		mockRepo, mockAccounts, service := setupTest()
		first := account.Account{ID: uuid.New(), Balance: decimal.Zero}
		second := account.Account{ID: uuid.New(), Balance: decimal.Zero}

		mockRepo.On("FindByID", ctx, customerID).Return(existingCustomer(t), nil).Once()
		mockAccounts.On("ListByCustomerID", ctx, customerID).Return([]account.Account{first, second}, nil).Once()
		mockAccounts.On("Delete", ctx, first.ID).Return(nil).Once()
		mockAccounts.On("Delete", ctx, second.ID).Return(nil).Once()
		mockRepo.On("DeleteByID", ctx, customerID).Return(nil).Once()

		msg, err := service.DeleteCustomer(ctx, customerID)

		assert.NoError(t, err)
		assert.Equal(t, "customer deleted successfully", msg)
		mockAccounts.AssertNumberOfCalls(t, "Delete", 2)
		mockRepo.AssertExpectations(t)
		mockAccounts.AssertExpectations(t)
	})

	t.Run("Error - Not Found", func(t *testing.T) {
		mockRepo, mockAccounts, service := setupTest()

		mockRepo.On("FindByID", ctx, customerID).Return(nil, customer.ErrNotFound).Once()

		msg, err := service.DeleteCustomer(ctx, customerID)

		assert.Empty(t, msg)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		mockAccounts.AssertNotCalled(t, "ListByCustomerID", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Account With Non-Zero Balance", func(t *testing.T) {
		mockRepo, mockAccounts, service := setupTest()
		funded := account.Account{ID: uuid.New(), Balance: decimal.NewFromFloat(99.50)}
		empty := account.Account{ID: uuid.New(), Balance: decimal.Zero}

		mockRepo.On("FindByID", ctx, customerID).Return(existingCustomer(t), nil).Once()
		mockAccounts.On("ListByCustomerID", ctx, customerID).Return([]account.Account{empty, funded}, nil).Once()

		msg, err := service.DeleteCustomer(ctx, customerID)

		assert.Empty(t, msg)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		var ce *apperrors.ConflictError
		if assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, "accounts must have zero balance to delete customer", ce.Message)
		}
		// No mutation at all: no remote deletes, no local delete.
		mockAccounts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
		mockAccounts.AssertExpectations(t)
	})

	t.Run("Error - Account Listing Fails", func(t *testing.T) {
		mockRepo, mockAccounts, service := setupTest()
		listErr := apperrors.NewBadRequestError("accounts not found")

		mockRepo.On("FindByID", ctx, customerID).Return(existingCustomer(t), nil).Once()
		mockAccounts.On("ListByCustomerID", ctx, customerID).Return(nil, listErr).Once()

		msg, err := service.DeleteCustomer(ctx, customerID)

		assert.Empty(t, msg)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		mockRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error - Remote Delete Fails Midway", func(t *testing.T) {
		mockRepo, mockAccounts, service := setupTest()
		first := account.Account{ID: uuid.New(), Balance: decimal.Zero}
		second := account.Account{ID: uuid.New(), Balance: decimal.Zero}
		remoteErr := errors.New("account service unavailable")

		mockRepo.On("FindByID", ctx, customerID).Return(existingCustomer(t), nil).Once()
		mockAccounts.On("ListByCustomerID", ctx, customerID).Return([]account.Account{first, second}, nil).Once()
		mockAccounts.On("Delete", ctx, first.ID).Return(remoteErr).Once()

		msg, err := service.DeleteCustomer(ctx, customerID)

		assert.Empty(t, msg)
		assert.ErrorIs(t, err, remoteErr)
		// First failure aborts the loop; the local record is left in place.
		mockAccounts.AssertNotCalled(t, "Delete", ctx, second.ID)
		mockRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
		mockAccounts.AssertExpectations(t)
	})
}
