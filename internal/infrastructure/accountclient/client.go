package accountclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"customer-ms/internal/config"
	"customer-ms/internal/domain/account"
	"customer-ms/internal/pkg/apperrors"

	"github.com/google/uuid"
)

// Client talks to the remote account service over HTTP and translates its
// failures into the domain error taxonomy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ account.AccountClient = (*Client)(nil)

func NewClient(cfg config.AccountServiceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewClient, using default stderr handler")
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "AccountClient"),
	}
}

func (c *Client) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]account.Account, error) {
	url := fmt.Sprintf("%s/account?clienteId=%s", c.baseURL, customerID)

	c.logger.DebugContext(ctx, "Listing accounts for customer", slog.String("customerID", customerID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.WrapRemoteError(err, "failed to create account listing request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Account listing request failed", slog.Any("error", err))
		return nil, apperrors.WrapRemoteError(err, "account service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		c.logger.WarnContext(ctx, "Account service rejected the listing request", slog.Int("status", resp.StatusCode))
		drainBody(resp.Body)
		return nil, apperrors.NewBadRequestError("accounts not found")
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "Account service returned unexpected status", slog.Int("status", resp.StatusCode))
		drainBody(resp.Body)
		return nil, apperrors.WrapRemoteError(
			fmt.Errorf("unexpected status %d from account service", resp.StatusCode),
			"account listing failed")
	}

	var accounts []account.Account
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode account listing response", slog.Any("error", err))
		return nil, apperrors.WrapRemoteError(err, "failed to decode account listing response")
	}

	c.logger.DebugContext(ctx, "Accounts listed", slog.Int("count", len(accounts)))
	return accounts, nil
}

func (c *Client) Delete(ctx context.Context, accountID uuid.UUID) error {
	url := fmt.Sprintf("%s/account/%s", c.baseURL, accountID)

	c.logger.DebugContext(ctx, "Deleting remote account", slog.String("accountID", accountID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return apperrors.WrapRemoteError(err, "failed to create account delete request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Account delete request failed", slog.Any("error", err))
		return apperrors.WrapRemoteError(err, "account service unreachable")
	}
	defer resp.Body.Close()
	drainBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		c.logger.ErrorContext(ctx, "Account delete returned unexpected status", slog.Int("status", resp.StatusCode))
		return apperrors.WrapRemoteError(
			fmt.Errorf("unexpected status %d from account service", resp.StatusCode),
			fmt.Sprintf("failed to delete account %s", accountID))
	}

	return nil
}

// drainBody lets the transport reuse the connection.
func drainBody(body io.Reader) {
	io.Copy(io.Discard, body)
}
