package statement

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentFormat indicates the document is not a supported statement:
	// wrong file type, unreadable structure, or a header without the required columns.
	ErrDocumentFormat = errors.New("statement: unsupported document format")
	// ErrTableExtraction indicates the transaction table could not be extracted at all.
	ErrTableExtraction = errors.New("statement: could not read the transaction table")
	// ErrFieldReconstruction indicates a merged free-text field could not be split.
	ErrFieldReconstruction = errors.New("statement: field reconstruction failed")
	// ErrValueFormat indicates a field failed its typed conversion.
	ErrValueFormat = errors.New("statement: invalid value")
)

// RowError annotates a parse failure with the 1-based table row it came from.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("statement: row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
