package statement

import (
	"fmt"
	"strings"
)

// Columns lists the statement columns in document order.
var Columns = []string{
	"App ID",
	"Xref",
	"Settlement Date",
	"Broker",
	"Sub Broker",
	"Borrower Name",
	"Description",
	"Total Loan Amount",
	"Comm Rate",
	"Upfront",
	"Upfront Incl GST",
}

// headerTerminator is the last word of the header line; first page text after it is table data.
const headerTerminator = "GST"

// ValidateHeader checks that the first page declares exactly the statement
// columns. Whitespace is ignored.
func ValidateHeader(pageText string) error {
	if strings.TrimSpace(pageText) == "" {
		return fmt.Errorf("%w: no header text on first page", ErrDocumentFormat)
	}
	idx := strings.Index(pageText, headerTerminator)
	if idx < 0 {
		return fmt.Errorf("%w: header does not contain all required columns", ErrDocumentFormat)
	}
	got := compact(pageText[:idx]) + headerTerminator
	if got != expectedHeader() {
		return fmt.Errorf("%w: header %q does not contain all required columns", ErrDocumentFormat, got)
	}
	return nil
}

func expectedHeader() string {
	return compact(strings.Join(Columns, ""))
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
