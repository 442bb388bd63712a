package core

import "github.com/JonMunkholm/attrmatrix/internal/store"

// ExportVersion tags every export document.
const ExportVersion = "1.0"

// Criterion is a column of the matrix.
type Criterion struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func criterionFrom(c store.Criterion) Criterion {
	return Criterion{ID: c.ID, Name: c.Name}
}

// Row is a formula together with its cells keyed by column name.
type Row struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Annotation string         `json:"annotation"`
	Spell      string         `json:"spell"`
	Attributes map[string]int `json:"attributes"`
}

func rowFrom(f store.Formula) Row {
	return Row{ID: f.ID, Name: f.Name, Annotation: f.Annotation, Spell: f.Spell}
}

// Table is the dense view of the matrix: every row carries a value for every
// column in Columns.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Snapshot is the transport document of export and import. A nil Columns or
// Rows marks a structurally invalid document.
type Snapshot struct {
	Columns []string      `json:"columns"`
	Rows    []SnapshotRow `json:"rows"`
}

// SnapshotRow is one row of a Snapshot.
type SnapshotRow struct {
	Name       string         `json:"name"`
	Annotation string         `json:"annotation"`
	Attributes map[string]int `json:"attributes"`
}

// ExportDocument wraps a Snapshot with its generation time (ISO-8601, UTC)
// and ExportVersion.
type ExportDocument struct {
	Data      Snapshot `json:"data"`
	Timestamp string   `json:"timestamp"`
	Version   string   `json:"version"`
}

// AxisInput names the criteria to bind to each axis end.
type AxisInput struct {
	Name      string `json:"name"`
	XNegative string `json:"xNegative"`
	XPositive string `json:"xPositive"`
	YNegative string `json:"yNegative"`
	YPositive string `json:"yPositive"`
}

// Axes holds the resolved criteria of an axis setting. An end whose criterion
// was deleted after the setting was written is nil.
type Axes struct {
	XNegative *Criterion `json:"xNegative"`
	XPositive *Criterion `json:"xPositive"`
	YNegative *Criterion `json:"yNegative"`
	YPositive *Criterion `json:"yPositive"`
}

// AxisSettingView is an axis setting with its criteria resolved to names.
type AxisSettingView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Axes Axes   `json:"axes"`
}

// ImportResult summarises one import.
type ImportResult struct {
	BatchID        string `json:"batch_id"`
	ColumnsCreated int    `json:"columns_created"`
	RowsCreated    int    `json:"rows_created"`
	RowsUpdated    int    `json:"rows_updated"`
	CellsWritten   int    `json:"cells_written"`
}
