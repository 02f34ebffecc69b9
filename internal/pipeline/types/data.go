package types

import "fmt"

type Kind int

const (
	KindUntyped Kind = iota
	KindInt
	KindString
	KindTimestamp
	KindDecimal
)

var kindNames = map[Kind]string{
	KindUntyped:   "untyped",
	KindInt:       "int",
	KindString:    "string",
	KindTimestamp: "timestamp",
	KindDecimal:   "decimal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ColumnType is a declared column type. Precision and Scale are only
// meaningful for KindDecimal.
type ColumnType struct {
	Kind      Kind
	Precision int
	Scale     int
}

var (
	Untyped   = ColumnType{Kind: KindUntyped}
	Int       = ColumnType{Kind: KindInt}
	String    = ColumnType{Kind: KindString}
	Timestamp = ColumnType{Kind: KindTimestamp}
)

func Decimal(precision, scale int) ColumnType {
	return ColumnType{Kind: KindDecimal, Precision: precision, Scale: scale}
}

func (t ColumnType) String() string {
	if t.Kind == KindDecimal {
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	}
	return t.Kind.String()
}

type Column struct {
	Name string
	Type ColumnType
}

type Schema []Column

// CastMap returns the column -> type mapping used by the caster.
func (s Schema) CastMap() map[string]ColumnType {
	m := make(map[string]ColumnType, len(s))
	for _, c := range s {
		m[c.Name] = c.Type
	}
	return m
}

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Dataset is a typed, in-memory table. Rows hold one value per column:
// nil, int64, string, time.Time or decimal.Decimal depending on the column kind.
type Dataset struct {
	Schema Schema
	Rows   [][]any
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Source identifies a versioned directory on the raw file host.
type Source struct {
	Owner  string
	Repo   string
	Branch string
	Subdir string
}

// Entity describes one base table loaded from one CSV file.
type Entity struct {
	Table  string
	File   string
	Schema Schema
}
