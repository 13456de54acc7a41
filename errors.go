// Package xlcore reads and writes spreadsheet documents conforming to the
// Office Open XML SpreadsheetML packaging format (.xlsx), and evaluates a
// defined subset of spreadsheet formulas over the resulting object model.
// This library needs Go version 1.21 or later.
package xlcore

import "fmt"

// ErrorCode is a stable, dispatchable identifier for a packaging or
// resolution failure. Callers should switch on Code rather than parse
// error strings.
type ErrorCode string

// Package-layer error codes.
const (
	ErrInvalidZipArchive      ErrorCode = "invalidZipArchive"
	ErrMissingPart            ErrorCode = "missingPart"
	ErrInvalidContentType     ErrorCode = "invalidContentType"
	ErrInvalidPackageStruct   ErrorCode = "invalidPackageStructure"
	ErrMalformedXML           ErrorCode = "malformedXML"
	ErrMissingRequiredElement ErrorCode = "missingRequiredElement"
	ErrInvalidAttributeValue  ErrorCode = "invalidAttributeValue"
	ErrInvalidCellReference   ErrorCode = "invalidCellReference"
	ErrSharedStringOutOfRange ErrorCode = "sharedStringIndexOutOfRange"
	ErrStyleIndexOutOfRange   ErrorCode = "styleIndexOutOfRange"
	ErrFileNotFound           ErrorCode = "fileNotFound"
	ErrAccessDenied           ErrorCode = "accessDenied"
	ErrNotAnXlsxFile          ErrorCode = "notAnXlsxFile"
)

// PackageError is the typed error surfaced by the package and schema layers.
// Part, Attribute and Detail are filled in as available; zero values are
// omitted from the message but still present on the struct for callers that
// want to inspect them directly.
type PackageError struct {
	Code      ErrorCode
	Part      string
	Attribute string
	Detail    string
}

func (e *PackageError) Error() string {
	msg := string(e.Code)
	if e.Part != "" {
		msg += fmt.Sprintf(" (part %s)", e.Part)
	}
	if e.Attribute != "" {
		msg += fmt.Sprintf(" [attr %s]", e.Attribute)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is allows errors.Is(err, &PackageError{Code: ErrMissingPart}) style checks
// against just the code.
func (e *PackageError) Is(target error) bool {
	t, ok := target.(*PackageError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newPackageError(code ErrorCode, part, detail string) *PackageError {
	return &PackageError{Code: code, Part: part, Detail: detail}
}

// Diagnostic records a best-effort drop: an optional sub-part (pivot table
// or table definition) that failed to read or parse and was skipped so the
// rest of the workbook still opens.
type Diagnostic struct {
	Part   string
	Detail string
}
