package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"customer-ms/internal/domain/customer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var customersTotal = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "customers_total",
	Help: "Number of customer records currently stored.",
})

// CustomerGaugeJob periodically refreshes the customers_total gauge from the
// repository so dashboards do not depend on request traffic to stay current.
type CustomerGaugeJob struct {
	repo   customer.CustomerRepository
	logger *slog.Logger
}

func NewCustomerGaugeJob(repo customer.CustomerRepository, logger *slog.Logger) *CustomerGaugeJob {
	if repo == nil || logger == nil {
		panic("CustomerGaugeJob dependencies cannot be nil")
	}
	return &CustomerGaugeJob{
		repo:   repo,
		logger: logger.With("job", "CustomerGauge"),
	}
}

func (j *CustomerGaugeJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.DebugContext(ctx, "Starting customer count refresh job.")

	count, err := j.repo.CountAll(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to count customers, leaving gauge unchanged.", slog.Any("error", err))
		return fmt.Errorf("cannot refresh customer gauge: %w", err)
	}

	customersTotal.Set(float64(count))
	j.logger.InfoContext(ctx, "Customer count refresh job finished.",
		slog.Int64("customers", count),
		slog.Duration("duration", time.Since(startTime)))
	return nil
}
