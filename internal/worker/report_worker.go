// Package worker turns month change events into report exports.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/export"
)

// MonthReader loads stored month snapshots.
type MonthReader interface {
	LoadMonth(ctx context.Context, key string) (core.MonthSnapshot, error)
	LoadAll(ctx context.Context) ([]core.MonthSnapshot, error)
}

// ReportWorker rebuilds a month's overview from storage and hands it to the
// configured report writer whenever the month changes.
type ReportWorker struct {
	store  MonthReader
	writer export.ReportWriter
}

func NewReportWorker(store MonthReader, writer export.ReportWriter) *ReportWorker {
	return &ReportWorker{store: store, writer: writer}
}

// HandleMonthEvent processes one month change event from AMQP.
func (w *ReportWorker) HandleMonthEvent(ctx context.Context, msg *amqp.MonthEventMessage) error {
	slog.InfoContext(ctx, "Processing month event",
		"month_key", msg.MonthKey,
		"kind", msg.Kind)

	snap, err := w.store.LoadMonth(ctx, msg.MonthKey)
	if err != nil {
		return fmt.Errorf("load month %s: %w", msg.MonthKey, err)
	}

	return w.exportSnapshot(ctx, snap)
}

// ExportAll re-exports every stored month. Backup mechanism in case AMQP
// messages were lost; wired to a periodic ticker in the worker binary.
func (w *ReportWorker) ExportAll(ctx context.Context) error {
	snaps, err := w.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load months: %w", err)
	}
	if len(snaps) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting all months", "count", len(snaps))

	var firstErr error
	for _, snap := range snaps {
		if err := w.exportSnapshot(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to export month",
				"month_key", snap.Key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *ReportWorker) exportSnapshot(ctx context.Context, snap core.MonthSnapshot) error {
	ov := core.RestoreMonth(snap).Overview()
	ref, err := w.writer.WriteMonthReport(ctx, ov)
	if err != nil {
		return fmt.Errorf("write report %s: %w", snap.Key, err)
	}

	slog.InfoContext(ctx, "Month report written",
		"month_key", snap.Key,
		"ref", ref)
	return nil
}
