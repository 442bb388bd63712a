package core

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/attrmatrix/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionColumnAdd      AuditAction = "column_add"
	ActionColumnDelete   AuditAction = "column_delete"
	ActionRowAdd         AuditAction = "row_add"
	ActionRowRename      AuditAction = "row_rename"
	ActionRowDelete      AuditAction = "row_delete"
	ActionAnnotationEdit AuditAction = "annotation_edit"
	ActionCellEdit       AuditAction = "cell_edit"
	ActionAxisCreate     AuditAction = "axis_create"
	ActionAxisUpdate     AuditAction = "axis_update"
	ActionAxisDelete     AuditAction = "axis_delete"
	ActionImport         AuditAction = "import"
	ActionReset          AuditAction = "reset"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditLogParams describes one audited mutation.
type AuditLogParams struct {
	Action       AuditAction
	RowKey       string
	ColumnName   string
	OldValue     string
	NewValue     string
	RowsAffected int64
	BatchID      string
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImport, ActionReset:
		return SeverityCritical
	case ActionRowDelete, ActionColumnDelete:
		return SeverityHigh
	case ActionAnnotationEdit, ActionAxisCreate, ActionAxisUpdate, ActionAxisDelete:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit writes an audit record for a committed mutation. Records go to the
// structured log with the acting user, client IP and User-Agent taken from ctx.
func (s *Service) LogAudit(ctx context.Context, p AuditLogParams) {
	attrs := []slog.Attr{
		slog.String("action", string(p.Action)),
		slog.String("severity", string(determineSeverity(p.Action))),
	}
	if p.RowKey != "" {
		attrs = append(attrs, slog.String("row", p.RowKey))
	}
	if p.ColumnName != "" {
		attrs = append(attrs, slog.String("column", p.ColumnName))
	}
	if p.OldValue != "" {
		attrs = append(attrs, slog.String("old_value", p.OldValue))
	}
	if p.NewValue != "" {
		attrs = append(attrs, slog.String("new_value", p.NewValue))
	}
	if p.RowsAffected > 0 {
		attrs = append(attrs, slog.Int64("rows_affected", p.RowsAffected))
	}
	if p.BatchID != "" {
		attrs = append(attrs, slog.String("batch_id", p.BatchID))
	}
	attrs = append(attrs, OriginFrom(ctx).attrs()...)

	logging.FromContext(ctx).LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
