package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"customer-ms/internal/domain/customer"
	"customer-ms/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var errMsgFormat = "%w: %w"

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrBadRequest)
	}

	logCtx := r.logger.With(slog.String("operation", "Save"), slog.String("customerID", cust.ID.String()))
	logCtx.DebugContext(ctx, "Attempting to insert new customer")

	query := `
        INSERT INTO customers (id, given_name, surname, dni, email)
        VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		cust.ID,
		cust.GivenName,
		cust.Surname,
		cust.DNI,
		cust.Email,
	)
	if err != nil {
		translatedErr := translateDBError(err, logCtx)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			logCtx.WarnContext(ctx, "Failed to insert customer due to unique constraint violation", slog.Any("error", translatedErr))
			return translatedErr
		}
		logCtx.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Customer inserted successfully")
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrBadRequest)
	}

	logCtx := r.logger.With(slog.String("operation", "Update"), slog.String("customerID", cust.ID.String()))
	logCtx.DebugContext(ctx, "Attempting to update customer")

	query := `
        UPDATE customers
        SET given_name = $1,
            surname = $2,
            dni = $3,
            email = $4
        WHERE id = $5`

	tag, err := r.db.Exec(ctx, query,
		cust.GivenName,
		cust.Surname,
		cust.DNI,
		cust.Email,
		cust.ID,
	)
	if err != nil {
		translatedErr := translateDBError(err, logCtx)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			logCtx.WarnContext(ctx, "Failed to update customer due to unique constraint violation", slog.Any("error", translatedErr))
			return translatedErr
		}
		logCtx.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update customer: %w", apperrors.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		logCtx.WarnContext(ctx, "No customer row matched the update")
		return customer.ErrNotFound
	}

	logCtx.DebugContext(ctx, "Customer updated successfully")
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	logCtx := r.logger.With(slog.String("operation", "FindByID"), slog.String("customerID", customerID.String()))
	logCtx.DebugContext(ctx, "Attempting to find customer by ID")

	query := `SELECT id, given_name, surname, dni, email FROM customers WHERE id = $1`

	var cust customer.Customer
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&cust.ID,
		&cust.GivenName,
		&cust.Surname,
		&cust.DNI,
		&cust.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logCtx.DebugContext(ctx, "Customer not found")
			return nil, customer.ErrNotFound
		}
		logCtx.ErrorContext(ctx, "Failed to query customer by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to find customer: %w", apperrors.ErrDatabase, err)
	}

	return &cust, nil
}

func (r *CustomerRepository) FindPage(ctx context.Context, limit, offset int) ([]*customer.Customer, error) {
	logCtx := r.logger.With(slog.String("operation", "FindPage"), slog.Int("limit", limit), slog.Int("offset", offset))
	logCtx.DebugContext(ctx, "Attempting to find customer page")

	query := `SELECT id, given_name, surname, dni, email FROM customers ORDER BY dni LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query customer page", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		var cust customer.Customer
		if err := rows.Scan(&cust.ID, &cust.GivenName, &cust.Surname, &cust.DNI, &cust.Email); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer row: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, &cust)
	}
	if err := rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating customer rows: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Customer page retrieved", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "ExistsByEmail", `SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1)`, email)
}

func (r *CustomerRepository) ExistsByDNI(ctx context.Context, dni string) (bool, error) {
	return r.exists(ctx, "ExistsByDNI", `SELECT EXISTS(SELECT 1 FROM customers WHERE dni = $1)`, dni)
}

func (r *CustomerRepository) exists(ctx context.Context, operation, query, arg string) (bool, error) {
	logCtx := r.logger.With(slog.String("operation", operation))
	logCtx.DebugContext(ctx, "Attempting existence check")

	var found bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		logCtx.ErrorContext(ctx, "Failed to run existence check", slog.Any("error", err))
		return false, fmt.Errorf("%w: failed existence check: %w", apperrors.ErrDatabase, err)
	}

	return found, nil
}

func (r *CustomerRepository) DeleteByID(ctx context.Context, customerID uuid.UUID) error {
	logCtx := r.logger.With(slog.String("operation", "DeleteByID"), slog.String("customerID", customerID.String()))
	logCtx.DebugContext(ctx, "Attempting to delete customer")

	query := `DELETE FROM customers WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, customerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to delete customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete customer: %w", apperrors.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		logCtx.WarnContext(ctx, "No customer row matched the delete")
		return customer.ErrNotFound
	}

	logCtx.DebugContext(ctx, "Customer deleted successfully")
	return nil
}

func (r *CustomerRepository) CountAll(ctx context.Context) (int64, error) {
	logCtx := r.logger.With(slog.String("operation", "CountAll"))
	logCtx.DebugContext(ctx, "Attempting to count customers")

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		logCtx.ErrorContext(ctx, "Failed to count customers", slog.Any("error", err))
		return 0, fmt.Errorf("%w: failed to count customers: %w", apperrors.ErrDatabase, err)
	}

	return count, nil
}

// translateDBError maps storage failures onto the domain taxonomy. The unique
// indexes on dni and email are the backstop for the service's advisory
// existence checks.
func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			switch {
			case strings.Contains(pgErr.ConstraintName, "email"):
				return fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, customer.ErrDuplicateEmail)
			case strings.Contains(pgErr.ConstraintName, "dni"):
				return fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, customer.ErrDuplicateDNI)
			}
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
