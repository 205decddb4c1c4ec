package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across the resolution pipeline
const (
	CodeInvalidReference       = "INVALID_REFERENCE"
	CodeMalformedIdentifier    = "MALFORMED_IDENTIFIER"
	CodeExtractionFailed       = "EXTRACTION_FAILED"
	CodeCommentaryFailed       = "COMMENTARY_FAILED"
	CodeRenderFailed           = "RENDER_FAILED"
	CodeResourceUnavailable    = "RESOURCE_UNAVAILABLE"
	CodeCacheComputationFailed = "CACHE_COMPUTATION_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidReference = NewDomainError(CodeInvalidReference, "Reference does not describe a citable unit")
)
