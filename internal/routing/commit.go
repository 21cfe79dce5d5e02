package routing

import (
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/metrics"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// Postgres error codes surfaced by row lock contention.
const (
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

// Committer is the atomic commit engine. One transaction covers the whole
// routing request: every (vendor, product) stock row is locked, re-read
// and decremented, and the per-vendor sub-orders are created, or nothing
// happens at all. The engine never retries; the pipeline owns retry
// policy so callers can re-rank around the failed vendor.
type Committer struct {
	db          *sql.DB
	lockTimeout time.Duration
	logger      logger.Logger
}

func NewCommitter(db *sql.DB, lockTimeout time.Duration, log logger.Logger) *Committer {
	return &Committer{db: db, lockTimeout: lockTimeout, logger: log}
}

type stockLine struct {
	vendorID  string
	productID string
	quantity  int
}

// CommitOrder executes the split plan. Commit states per attempt:
// PLANNED -> COMMITTING -> COMMITTED | ABORTED. On a stock shortfall the
// transaction aborts entirely and the failing (vendor, product) pair is
// reported in the StockConflictError. Lock waits are bounded by the
// configured lock_timeout; hitting it maps to TransientLockTimeoutError.
func (c *Committer) CommitOrder(ctx context.Context, req models.RoutingRequest, groups []models.SplitGroup) (string, error) {
	log := c.logger.WithFields(map[string]interface{}{
		"orderId": req.OrderID,
		"groups":  len(groups),
	})
	log.Info("commit started", map[string]interface{}{"state": models.CommitStateCommitting})

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.NewOrderCommitFailedError(req.OrderID, err)
	}
	defer tx.Rollback()

	// Bounded lock wait; SET LOCAL keeps it scoped to this transaction.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", c.lockTimeout.Milliseconds())); err != nil {
		return "", errors.NewOrderCommitFailedError(req.OrderID, err)
	}

	// Lock stock rows in a global (vendor, product) order so two commits
	// touching the same rows cannot deadlock each other.
	lines := flattenStockLines(groups)

	for _, line := range lines {
		var available int
		err := tx.QueryRowContext(ctx,
			`SELECT available_quantity FROM vendor_offers
			 WHERE vendor_id = $1 AND product_id = $2 AND is_active
			 FOR UPDATE`,
			line.vendorID, line.productID,
		).Scan(&available)
		if err == sql.ErrNoRows {
			// Offer deactivated between ranking and commit.
			metrics.StockConflicts.Inc()
			log.Warn("commit aborted, offer gone", map[string]interface{}{
				"state":     models.CommitStateAborted,
				"vendorId":  line.vendorID,
				"productId": line.productID,
			})
			return "", errors.NewStockConflictError(line.vendorID, line.productID, 0, line.quantity)
		}
		if err != nil {
			return "", c.mapLockError(req.OrderID, err)
		}

		if available < line.quantity {
			metrics.StockConflicts.Inc()
			log.Warn("commit aborted, insufficient stock", map[string]interface{}{
				"state":     models.CommitStateAborted,
				"vendorId":  line.vendorID,
				"productId": line.productID,
				"available": available,
				"requested": line.quantity,
			})
			return "", errors.NewStockConflictError(line.vendorID, line.productID, available, line.quantity)
		}
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			`UPDATE vendor_offers
			 SET available_quantity = available_quantity - $3, updated_at = now()
			 WHERE vendor_id = $1 AND product_id = $2`,
			line.vendorID, line.productID, line.quantity,
		); err != nil {
			return "", c.mapLockError(req.OrderID, err)
		}
	}

	now := time.Now().UTC()
	for _, g := range groups {
		subOrderID := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sub_orders (id, order_id, vendor_id, status, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			subOrderID, req.OrderID, g.VendorID, "PENDING", g.Subtotal, now,
		); err != nil {
			return "", errors.NewOrderCommitFailedError(req.OrderID, err)
		}
		for _, item := range g.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sub_order_items (id, sub_order_id, product_id, quantity, unit_price)
				 VALUES ($1, $2, $3, $4, $5)`,
				uuid.NewString(), subOrderID, item.ProductID, item.Quantity, item.UnitPrice,
			); err != nil {
				return "", errors.NewOrderCommitFailedError(req.OrderID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", c.mapLockError(req.OrderID, err)
	}

	log.Info("commit succeeded", map[string]interface{}{"state": models.CommitStateCommitted})
	return req.OrderID, nil
}

// flattenStockLines lists the split plan's decrements sorted by
// (vendor, product) for deterministic lock acquisition. Each pair occurs
// at most once: duplicate product lines are rejected up front and
// splitting assigns each line to a single vendor.
func flattenStockLines(groups []models.SplitGroup) []stockLine {
	var lines []stockLine
	for _, g := range groups {
		for _, item := range g.Items {
			lines = append(lines, stockLine{
				vendorID:  g.VendorID,
				productID: item.ProductID,
				quantity:  item.Quantity,
			})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].vendorID != lines[j].vendorID {
			return lines[i].vendorID < lines[j].vendorID
		}
		return lines[i].productID < lines[j].productID
	})
	return lines
}

func (c *Committer) mapLockError(orderID string, err error) error {
	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqLockNotAvailable, pqDeadlockDetected:
			return errors.NewLockTimeoutError(orderID, err)
		}
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return errors.NewLockTimeoutError(orderID, err)
	}
	return errors.NewOrderCommitFailedError(orderID, err)
}
