package caster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
	"github.com/go-gota/gota/dataframe"
	"github.com/shopspring/decimal"
)

var errMissingColumn = errors.New("column not present in dataset")

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Cast applies casts to df. Columns without a declared type are kept as
// untyped text, in their original position. Missing cells become nil.
func Cast(df dataframe.DataFrame, casts map[string]types.ColumnType) (*types.Dataset, error) {
	names := df.Names()
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	for col, typ := range casts {
		if !present[col] {
			return nil, &types.CastError{Column: col, Type: typ, Row: -1, Err: errMissingColumn}
		}
	}

	nrow := df.Nrow()
	ds := &types.Dataset{
		Schema: make(types.Schema, len(names)),
		Rows:   make([][]any, nrow),
	}
	for i := range ds.Rows {
		ds.Rows[i] = make([]any, len(names))
	}

	for j, name := range names {
		typ, declared := casts[name]
		if !declared {
			typ = types.Untyped
		}
		ds.Schema[j] = types.Column{Name: name, Type: typ}

		col := df.Col(name)
		for i := 0; i < nrow; i++ {
			elem := col.Elem(i)
			if elem.IsNA() {
				continue
			}
			raw := elem.String()
			v, err := Value(raw, typ)
			if err != nil {
				return nil, &types.CastError{Column: name, Type: typ, Row: i, Value: raw, Err: err}
			}
			ds.Rows[i][j] = v
		}
	}
	return ds, nil
}

// Value coerces a single textual cell. Untyped and string values are
// returned unchanged.
func Value(raw string, typ types.ColumnType) (any, error) {
	switch typ.Kind {
	case types.KindUntyped, types.KindString:
		return raw, nil
	case types.KindInt:
		return ParseInt(raw)
	case types.KindTimestamp:
		return ParseTimestamp(raw)
	case types.KindDecimal:
		return ParseDecimal(raw, typ.Precision, typ.Scale)
	default:
		return nil, fmt.Errorf("unsupported column type %s", typ)
	}
}

// ParseInt accepts base 10 integers and integral decimal text such as "3.0".
// Values outside the int64 range are rejected.
func ParseInt(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	d, derr := decimal.NewFromString(s)
	if derr != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("value %q is not an integer", raw)
	}
	if b := d.BigInt(); b.IsInt64() {
		return b.Int64(), nil
	}
	return 0, fmt.Errorf("value %q overflows int64", raw)
}

func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// ParseDecimal reads raw as a fixed point number with the given precision and
// scale. A comma decimal separator is accepted and replaced with a period.
func ParseDecimal(raw string, precision, scale int) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d = d.Round(int32(scale))

	if precision > 0 {
		limit := decimal.New(1, int32(precision-scale))
		if d.Abs().GreaterThanOrEqual(limit) {
			return decimal.Decimal{}, fmt.Errorf("value %s overflows decimal(%d,%d)", d.String(), precision, scale)
		}
	}
	return d, nil
}
