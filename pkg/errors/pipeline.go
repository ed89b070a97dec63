package errors

import "fmt"

// InvalidDataError reports a malformed input row. The aggregator records one
// per excluded row instead of failing the whole run.
type InvalidDataError struct {
	Row    int    // Zero-based row index in the source table (-1 if unknown)
	Ticker string // Ticker of the offending row, if known
	Field  string // Column that failed validation
	Reason string
}

func (e *InvalidDataError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("invalid data: row %d (%s): %s: %s", e.Row, e.Ticker, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid data: row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// Code returns ErrCodeInvalidData.
func (e *InvalidDataError) Code() Code { return ErrCodeInvalidData }

// EmptyHierarchyError is returned when no sector group survives aggregation,
// typically because the selected date has no change row.
type EmptyHierarchyError struct {
	Date     string
	Maturity string
}

func (e *EmptyHierarchyError) Error() string {
	switch {
	case e.Date != "" && e.Maturity != "":
		return fmt.Sprintf("empty hierarchy: no data for %s (%s)", e.Date, e.Maturity)
	case e.Date != "":
		return fmt.Sprintf("empty hierarchy: no data for %s", e.Date)
	}
	return "empty hierarchy: no sector groups"
}

// Code returns ErrCodeEmptyHierarchy.
func (e *EmptyHierarchyError) Code() Code { return ErrCodeEmptyHierarchy }

// LayoutError is returned for unusable canvas bounds. Callers retry once real
// dimensions are known.
type LayoutError struct {
	Width, Height float64
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("invalid layout bounds: %gx%g (width and height must be positive)", e.Width, e.Height)
}

// Code returns ErrCodeInvalidLayout.
func (e *LayoutError) Code() Code { return ErrCodeInvalidLayout }

// EncodingError reports non-finite geometry or weight for a single cell.
type EncodingError struct {
	ID     string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %s", e.ID, e.Reason)
}

// Code returns ErrCodeEncoding.
func (e *EncodingError) Code() Code { return ErrCodeEncoding }
