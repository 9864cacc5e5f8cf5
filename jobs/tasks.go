// Package jobs holds the background tasks of the stockroom service:
// the nightly ledger integrity check and the valuation snapshot.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stockroom-pos/stockroom-pos/internal/jobs"
	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity recomputes the ledger fold invariants.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskValuationSnapshot logs the current stock valuation.
	TaskValuationSnapshot = "valuation:snapshot"
)

type taskPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs the nightly integrity task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(taskPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewValuationSnapshotTask constructs the valuation snapshot task.
func NewValuationSnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(taskPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskValuationSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// HandleLedgerIntegrity compares every derived row against the fold of
// its ledger records and logs each drifting row. Drift is reported, not
// repaired.
func HandleLedgerIntegrity(store ledger.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskLedgerIntegrity)
		drifts, err := store.CheckIntegrity(ctx)
		if err != nil {
			return tracker.End(err)
		}
		if len(drifts) == 0 {
			logger.Info("ledger integrity check passed", slog.String("job", TaskLedgerIntegrity))
			return tracker.End(nil)
		}
		for _, d := range drifts {
			logger.Error("ledger fold drift",
				slog.String("kind", d.Kind),
				slog.Int64("warehouse_id", d.WarehouseID),
				slog.Int64("product_id", d.ProductID),
				slog.Int64("user_id", d.UserID),
				slog.String("stored", d.Stored.String()),
				slog.String("derived", d.Derived.String()))
		}
		return tracker.End(nil)
	}
}

// HandleValuationSnapshot logs the global retail and cost valuation and
// the outstanding user credit, so the books can be followed over time.
func HandleValuationSnapshot(store ledger.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskValuationSnapshot)
		totals, err := store.ValuationTotals(ctx, 0)
		if err != nil {
			return tracker.End(err)
		}
		creditSum, err := store.TotalCredit(ctx)
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("valuation snapshot",
			slog.String("job", TaskValuationSnapshot),
			slog.String("retail", totals.Retail.String()),
			slog.String("cost", totals.Cost.String()),
			slog.String("profit", totals.Profit().String()),
			slog.String("credit_sum", creditSum.String()))
		return tracker.End(nil)
	}
}
