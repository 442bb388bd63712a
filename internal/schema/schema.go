// Package schema is the explicit relational definition of the attribute matrix.
//
// The tables, columns and constraints live here as plain data, independent of
// the in-memory entity types, and are rendered to DDL for each supported
// dialect. Stores apply [Statements] at startup; every statement is idempotent.
//
// Cascades are deliberately absent from the foreign keys: removing a row or a
// column deletes its cells explicitly inside the same transaction.
package schema

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour rendered by the DDL helpers.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ColumnType is the logical type of a column.
type ColumnType int

const (
	TypeID ColumnType = iota
	TypeInteger
	TypeVarchar
	TypeText
)

// Column describes one table column.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	Default  string
	// References names the table whose id this column points at.
	References string
}

// Index is a (possibly unique) index over one or more columns.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is a complete table definition.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Table names.
const (
	CriteriaTable    = "criteria"
	FormulaTable     = "formula"
	AttributeTable   = "attribute"
	AxisSettingTable = "axis_setting"
)

// Axis-setting reference columns, in xNegative, xPositive, yNegative, yPositive order.
var AxisColumns = [4]string{
	"xNegative_criteria_id",
	"xPositive_criteria_id",
	"yNegative_criteria_id",
	"yPositive_criteria_id",
}

// Criteria holds the column definitions of the matrix.
var Criteria = Table{
	Name: CriteriaTable,
	Columns: []Column{
		{Name: "id", Type: TypeID},
		{Name: "name", Type: TypeVarchar},
	},
	Indexes: []Index{
		{Name: "IDX_criteria_name", Columns: []string{"name"}, Unique: true},
	},
}

// Formula holds the row definitions of the matrix.
var Formula = Table{
	Name: FormulaTable,
	Columns: []Column{
		{Name: "id", Type: TypeID},
		{Name: "name", Type: TypeVarchar},
		{Name: "annotation", Type: TypeText, Nullable: true},
		{Name: "spell", Type: TypeVarchar, Default: "''"},
	},
	Indexes: []Index{
		{Name: "IDX_formula_name", Columns: []string{"name"}, Unique: true},
	},
}

// Attribute holds one cell per (formula, criteria) pair.
var Attribute = Table{
	Name: AttributeTable,
	Columns: []Column{
		{Name: "id", Type: TypeID},
		{Name: "formula_id", Type: TypeInteger, References: FormulaTable},
		{Name: "criteria_id", Type: TypeInteger, References: CriteriaTable},
		{Name: "value", Type: TypeInteger, Default: "0"},
	},
	Indexes: []Index{
		{Name: "IDX_attribute_formula_criteria", Columns: []string{"formula_id", "criteria_id"}, Unique: true},
		{Name: "IDX_attribute_criteria", Columns: []string{"criteria_id"}},
	},
}

// AxisSetting binds four criteria to the ends of two chart axes. The criteria
// ids carry no foreign key: deleting a criterion is not blocked
// by the settings that use it, and the dangling end is rendered as null by
// the axis-setting view. Names are validated when a setting is written.
var AxisSetting = Table{
	Name: AxisSettingTable,
	Columns: []Column{
		{Name: "id", Type: TypeID},
		{Name: "name", Type: TypeVarchar},
		{Name: AxisColumns[0], Type: TypeInteger},
		{Name: AxisColumns[1], Type: TypeInteger},
		{Name: AxisColumns[2], Type: TypeInteger},
		{Name: AxisColumns[3], Type: TypeInteger},
	},
	Indexes: []Index{
		{Name: "IDX_axis_setting_name", Columns: []string{"name"}, Unique: true},
	},
}

// Tables lists every table in creation order (referenced tables first).
var Tables = []Table{Criteria, Formula, Attribute, AxisSetting}

// Quote quotes an identifier. Both dialects accept double quotes, and quoting
// keeps the mixed-case axis column names intact in Postgres.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (c Column) ddl(d Dialect) string {
	var b strings.Builder
	b.WriteString(Quote(c.Name))
	b.WriteByte(' ')

	switch c.Type {
	case TypeID:
		if d == SQLite {
			b.WriteString("INTEGER PRIMARY KEY AUTOINCREMENT")
		} else {
			b.WriteString("SERIAL PRIMARY KEY")
		}
		return b.String()
	case TypeInteger:
		b.WriteString("INTEGER")
	case TypeVarchar:
		if d == SQLite {
			b.WriteString("TEXT")
		} else {
			b.WriteString("CHARACTER VARYING")
		}
	case TypeText:
		b.WriteString("TEXT")
	}

	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	if c.References != "" {
		fmt.Fprintf(&b, " REFERENCES %s(%s)", Quote(c.References), Quote("id"))
	}
	return b.String()
}

// CreateDDL returns the CREATE TABLE statement for the table.
func (t Table) CreateDDL(d Dialect) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = "    " + c.ddl(d)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", Quote(t.Name), strings.Join(cols, ",\n"))
}

// IndexDDL returns the CREATE INDEX statements for the table.
func (t Table) IndexDDL() []string {
	out := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = Quote(c)
		}
		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}
		out = append(out, fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
			kind, Quote(idx.Name), Quote(t.Name), strings.Join(cols, ", ")))
	}
	return out
}

// ColumnNames returns the quoted, comma-joined column list of the table.
func (t Table) ColumnNames() string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = Quote(c.Name)
	}
	return strings.Join(names, ", ")
}

// Statements returns every DDL statement needed to bring an empty database to
// the current schema, in execution order.
func Statements(d Dialect) []string {
	var out []string
	for _, t := range Tables {
		out = append(out, t.CreateDDL(d))
	}
	for _, t := range Tables {
		out = append(out, t.IndexDDL()...)
	}
	return out
}
