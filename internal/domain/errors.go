package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeDownload          ErrorType = "download"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeConversionTool    ErrorType = "conversion_tool"
	ErrorTypePageCount         ErrorType = "page_count"
	ErrorTypePageSplit         ErrorType = "page_split"
	ErrorTypeRender            ErrorType = "render"
	ErrorTypeExtract           ErrorType = "extract"
	ErrorTypeUpload            ErrorType = "upload"
	ErrorTypeNotify            ErrorType = "notify"
	ErrorTypeCleanup           ErrorType = "cleanup"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeAdmission         ErrorType = "admission"
	ErrorTypeConfig            ErrorType = "config"
)

// DomainError represents a domain-specific error with context.
// Page is the 1-based page index for per-page failures and 0 otherwise.
type DomainError struct {
	Type    ErrorType
	Message string
	Page    int
	Err     error
}

func (e *DomainError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Page > 0 {
		prefix = fmt.Sprintf("[%s page %d]", e.Type, e.Page)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NewPageError creates a domain error bound to a single page
func NewPageError(errType ErrorType, page int, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Page:    page,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of the first DomainError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err wraps a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// Common error constructors
func DownloadError(message string, err error) *DomainError {
	return NewError(ErrorTypeDownload, message, err)
}

func UnsupportedFormatError(format string) *DomainError {
	return NewError(ErrorTypeUnsupportedFormat, fmt.Sprintf("unsupported source format %q", format), nil)
}

func ConversionToolError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversionTool, message, err)
}

func PageCountError(message string, err error) *DomainError {
	return NewError(ErrorTypePageCount, message, err)
}

func PageSplitError(message string, err error) *DomainError {
	return NewError(ErrorTypePageSplit, message, err)
}

func RenderError(page int, err error) *DomainError {
	return NewPageError(ErrorTypeRender, page, "render failed", err)
}

func ExtractError(page int, err error) *DomainError {
	return NewPageError(ErrorTypeExtract, page, "text extraction failed", err)
}

func UploadError(page int, err error) *DomainError {
	return NewPageError(ErrorTypeUpload, page, "upload failed", err)
}

func NotifyError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotify, message, err)
}

func CleanupError(message string, err error) *DomainError {
	return NewError(ErrorTypeCleanup, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func AdmissionError(message string, err error) *DomainError {
	return NewError(ErrorTypeAdmission, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}
