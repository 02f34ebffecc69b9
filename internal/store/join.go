package store

import (
	"fmt"
	"strings"
)

type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
)

// ColumnRef names a column through its table alias.
type ColumnRef struct {
	Alias  string
	Column string
}

func (c ColumnRef) String() string { return c.Alias + "." + c.Column }

// Predicate is an equality join condition Left = Right.
type Predicate struct {
	Left  ColumnRef
	Right ColumnRef
}

func (p Predicate) String() string { return p.Left.String() + " = " + p.Right.String() }

type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    Predicate
}

// Projection selects one output column. AsText casts the value to text.
type Projection struct {
	From   ColumnRef
	As     string
	AsText bool
}

func (p Projection) Name() string {
	if p.As != "" {
		return p.As
	}
	return p.From.Column
}

// JoinPlan is a SELECT over a base table and a chain of equality joins.
type JoinPlan struct {
	Table   string
	Alias   string
	Joins   []Join
	Columns []Projection
}

// render builds the SELECT for plan, qualifying tables through ec.
func (plan JoinPlan) render(ec *ExecutionContext) (string, error) {
	if plan.Table == "" || plan.Alias == "" {
		return "", fmt.Errorf("join plan needs a base table and alias")
	}
	if len(plan.Columns) == 0 {
		return "", fmt.Errorf("join plan has no columns")
	}

	known := map[string]bool{plan.Alias: true}
	for _, j := range plan.Joins {
		if known[j.Alias] {
			return "", fmt.Errorf("duplicate alias %q", j.Alias)
		}
		known[j.Alias] = true
		for _, ref := range []ColumnRef{j.On.Left, j.On.Right} {
			if !known[ref.Alias] {
				return "", fmt.Errorf("join %s references unknown alias %q", j.Table, ref.Alias)
			}
		}
	}

	cols := make([]string, len(plan.Columns))
	for i, p := range plan.Columns {
		if !known[p.From.Alias] {
			return "", fmt.Errorf("column %s references unknown alias %q", p.Name(), p.From.Alias)
		}
		expr := ref(p.From)
		if p.AsText {
			expr = "CAST(" + expr + " AS TEXT)"
		}
		cols[i] = expr + " AS " + quoteIdent(p.Name())
	}

	var b strings.Builder
	b.WriteString("SELECT\n\t")
	b.WriteString(strings.Join(cols, ",\n\t"))
	fmt.Fprintf(&b, "\nFROM %s AS %s", ec.Qualify(plan.Table), quoteIdent(plan.Alias))
	for _, j := range plan.Joins {
		fmt.Fprintf(&b, "\n%s %s AS %s ON %s = %s",
			j.Kind, ec.Qualify(j.Table), quoteIdent(j.Alias), ref(j.On.Left), ref(j.On.Right))
	}
	return b.String(), nil
}

func ref(c ColumnRef) string {
	return quoteIdent(c.Alias) + "." + quoteIdent(c.Column)
}
