// Package orders records trade decisions in a durable paper-order journal. No
// real exchange order is placed; the journal is the system's ledger of what
// the strategy decided.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
)

const (
	orderKeyPrefix     = "order_"
	orderStatusPending = "pending"
	orderStatusDone    = "done"
	orderStatusFailed  = "failed"

	walSegmentThreshold = 1000
	walMaxSegments      = 100
	walDirPermissions   = 0o755
)

type orderRecord struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Symbol   string          `json:"symbol"`
	Action   string          `json:"action"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity,omitempty"`
	Time     time.Time       `json:"time"`
	Error    string          `json:"error,omitempty"`
}

// RecordedOrder is a journaled order visible to callers.
type RecordedOrder struct {
	ID       string
	Decision domain.TradeDecision
	Time     time.Time
	Status   string
}

// PaperRecorder journals every decision to a write-ahead log so recorded
// orders survive restarts. A failed journal write is reported to the caller
// but must not block subsequent decisions.
type PaperRecorder struct {
	wal     *gowal.Wal
	logger  *zap.Logger
	records []*orderRecord
	index   map[string]*orderRecord
}

// NewPaperRecorder opens (or creates) the journal under dir and recovers
// previously recorded orders.
func NewPaperRecorder(dir string, logger *zap.Logger) (*PaperRecorder, error) {
	if err := os.MkdirAll(dir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure journal directory %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open order journal")
	}

	r := &PaperRecorder{
		wal:    wal,
		logger: logger,
		index:  make(map[string]*orderRecord),
	}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, orderKeyPrefix) {
			continue
		}
		var record orderRecord
		if err := json.Unmarshal(msg.Value, &record); err != nil {
			logger.Error("failed to unmarshal order record", zap.Error(err), zap.String("key", msg.Key))
			continue
		}
		if existing, ok := r.index[record.ID]; ok {
			*existing = record
			continue
		}
		recordCopy := record
		r.records = append(r.records, &recordCopy)
		r.index[record.ID] = &recordCopy
	}

	return r, nil
}

// Record journals one trade decision. The decision is written as pending
// first, then marked done, so a crash between the two leaves an auditable
// trace.
func (r *PaperRecorder) Record(ctx context.Context, decision domain.TradeDecision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := &orderRecord{
		ID:       uuid.New().String(),
		Status:   orderStatusPending,
		Symbol:   decision.Symbol.String(),
		Action:   decision.Action.String(),
		Price:    decision.ReferencePrice,
		Quantity: decision.Quantity,
		Time:     time.Now(),
	}

	if err := r.persist(record); err != nil {
		return errors.Wrapf(err, "failed to journal order for %s", decision.Symbol)
	}
	r.records = append(r.records, record)
	r.index[record.ID] = record

	record.Status = orderStatusDone
	if err := r.persist(record); err != nil {
		record.Status = orderStatusFailed
		record.Error = err.Error()
		return errors.Wrapf(err, "failed to finalize order for %s", decision.Symbol)
	}

	r.logger.Info("paper order recorded",
		zap.String("order_id", record.ID),
		zap.String("symbol", record.Symbol),
		zap.String("action", record.Action),
		zap.String("price", record.Price.String()),
		zap.Int64("quantity", record.Quantity))

	return nil
}

// Orders returns all journaled orders in recording sequence.
func (r *PaperRecorder) Orders() []RecordedOrder {
	out := make([]RecordedOrder, 0, len(r.records))
	for _, record := range r.records {
		action, err := domain.ActionFromString(record.Action)
		if err != nil {
			r.logger.Warn("skipping journal record with unknown action",
				zap.String("order_id", record.ID),
				zap.String("action", record.Action))
			continue
		}
		out = append(out, RecordedOrder{
			ID: record.ID,
			Decision: domain.TradeDecision{
				Symbol:         domain.Symbol(record.Symbol),
				Action:         action,
				ReferencePrice: record.Price,
				Quantity:       record.Quantity,
			},
			Time:   record.Time,
			Status: record.Status,
		})
	}
	return out
}

// Close releases the underlying journal.
func (r *PaperRecorder) Close() error {
	return r.wal.Close()
}

func (r *PaperRecorder) persist(record *orderRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order record")
	}
	key := fmt.Sprintf("%s%s", orderKeyPrefix, record.ID)
	nextIndex := r.wal.CurrentIndex() + 1
	return r.wal.Write(nextIndex, key, data)
}
