package decoder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

const byteOrderMark = "\ufeff"

// NaNValues are the cell values read as missing, in addition to the empty cell.
var NaNValues = []string{"", "NA", "NaN", "<nil>"}

var errEmptyHeader = errors.New("empty header row")

// Decode parses a comma separated payload with a header row. UTF-8 is tried
// first and ISO-8859-1 is used when the payload is not valid UTF-8. Every
// column is read as text; typing is the caster's job.
func Decode(payload []byte) (dataframe.DataFrame, error) {
	df, _, err := DecodeWithEncoding(payload)
	return df, err
}

// DecodeWithEncoding is Decode that also reports the encoding the payload was
// read with.
func DecodeWithEncoding(payload []byte) (dataframe.DataFrame, string, error) {
	text, encErr := decodeAs(payload, EncodingUTF8)
	if encErr == nil {
		df, err := parse(text, EncodingUTF8)
		return df, EncodingUTF8, err
	}

	latin, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return dataframe.DataFrame{}, EncodingLatin1, &types.DecodeError{Encoding: EncodingLatin1, Err: err}
	}
	df, err := parse(latin, EncodingLatin1)
	return df, EncodingLatin1, err
}

// Encoding reports which encoding Decode will use for payload.
func Encoding(payload []byte) string {
	if _, err := decodeAs(payload, EncodingUTF8); err != nil {
		return EncodingLatin1
	}
	return EncodingUTF8
}

func decodeAs(payload []byte, enc string) ([]byte, error) {
	r := transform.NewReader(bytes.NewReader(payload), encoding.UTF8Validator)
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &types.DecodeError{Encoding: enc, Err: err}
	}
	return out, nil
}

func parse(text []byte, enc string) (dataframe.DataFrame, error) {
	if len(bytes.TrimSpace(text)) == 0 {
		return dataframe.DataFrame{}, &types.DecodeError{Encoding: enc, Err: errEmptyHeader}
	}

	df := dataframe.ReadCSV(bytes.NewReader(text),
		dataframe.WithDelimiter(','),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		header, ok := headerOnly(text)
		if !ok {
			return dataframe.DataFrame{}, &types.DecodeError{Encoding: enc, Err: df.Err}
		}
		df = emptyFrame(header)
	}

	for _, name := range df.Names() {
		clean := CleanColumnName(name)
		if clean != name {
			df = df.Rename(clean, name)
			if df.Err != nil {
				return dataframe.DataFrame{}, &types.DecodeError{Encoding: enc, Err: df.Err}
			}
		}
	}
	return df, nil
}

// headerOnly reports whether text holds a single header record and no rows.
// gota refuses to load such a file, but it is a valid, empty dataset.
func headerOnly(text []byte) ([]string, bool) {
	r := csv.NewReader(bytes.NewReader(text))
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil || len(records) != 1 {
		return nil, false
	}
	return records[0], true
}

func emptyFrame(header []string) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

// CleanColumnName strips surrounding whitespace and a leading byte order mark.
func CleanColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, byteOrderMark)
	return strings.TrimSpace(name)
}
