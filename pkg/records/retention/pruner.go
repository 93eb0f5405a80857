package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
)

// deleteBatchSize caps how many IDs go into one count-based delete.
const deleteBatchSize = 500

// PruneRecorder receives the number of records removed by each prune.
// *metrics.Collector satisfies it.
type PruneRecorder interface {
	RecordPruned(n int64)
}

// Pruner enforces retention policies on stored records.
type Pruner struct {
	storage   records.Storage
	config    config.RetentionConfig
	logger    *slog.Logger
	scheduler *Scheduler
	recorder  PruneRecorder
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage records.Storage, cfg config.RetentionConfig) *Pruner {
	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "records.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// WithRecorder sets where prune counts are reported.
func (p *Pruner) WithRecorder(r PruneRecorder) *Pruner {
	p.recorder = r
	return p
}

// Prune deletes records older than the retention period, then trims the
// oldest records while the total exceeds MaxRecords. Returns the number of
// records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, err
		}
		totalDeleted += deleted
		p.logger.Info("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.Days,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		totalDeleted += deleted
		if err != nil {
			return totalDeleted, &records.PruneError{Rule: "count", Err: err}
		}
		p.logger.Info("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if p.recorder != nil && totalDeleted > 0 {
		p.recorder.RecordPruned(totalDeleted)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)

	p.logger.Debug("pruning by age", "cutoff_time", cutoff)

	deleted, err := p.storage.Delete(ctx, &records.Query{EndTime: &cutoff})
	if err != nil {
		return 0, &records.PruneError{Rule: "age", Err: err}
	}
	return deleted, nil
}

// pruneByCount deletes the oldest records by ID so that records sharing a
// timestamp with the newest survivor are not swept up.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &records.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	if count <= p.config.MaxRecords {
		p.logger.Debug("record count within limit",
			"current", count,
			"max", p.config.MaxRecords,
		)
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	var deleted int64
	for deleted < toDelete {
		batch := toDelete - deleted
		if batch > deleteBatchSize {
			batch = deleteBatchSize
		}

		oldest, err := p.storage.Query(ctx, &records.Query{
			SortOrder: records.SortAsc,
			Limit:     int(batch),
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to query records: %w", err)
		}
		if len(oldest) == 0 {
			break
		}

		ids := make([]string, len(oldest))
		for i, r := range oldest {
			ids[i] = r.ID
		}

		n, err := p.storage.Delete(ctx, &records.Query{IDs: ids})
		if err != nil {
			return deleted, fmt.Errorf("delete failed: %w", err)
		}
		deleted += n
		if n == 0 {
			break
		}
	}

	return deleted, nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
