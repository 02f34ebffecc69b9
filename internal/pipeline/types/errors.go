package types

import "fmt"

// TransferError reports a failed or timed out download.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transfer %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// DecodeError reports a payload that is not valid delimited text in any
// supported encoding.
type DecodeError struct {
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode (%s): %v", e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CastError reports a value that cannot be coerced to its declared type.
// Row is zero based and -1 when the failure is not tied to a row.
type CastError struct {
	Column string
	Type   ColumnType
	Row    int
	Value  string
	Err    error
}

func (e *CastError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("cast column %q to %s: %v", e.Column, e.Type, e.Err)
	}
	return fmt.Sprintf("cast column %q row %d value %q to %s: %v", e.Column, e.Row, e.Value, e.Type, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }

// StoreError reports a failed table operation.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CacheEvictionError reports a failed uncache. It is never fatal.
type CacheEvictionError struct {
	Table string
	Err   error
}

func (e *CacheEvictionError) Error() string {
	return fmt.Sprintf("uncache %s: %v", e.Table, e.Err)
}

func (e *CacheEvictionError) Unwrap() error { return e.Err }
