package dto

import (
	"net/http"

	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
)

// Transport-level error codes for failures that never reach the domain
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = shared.CodeNotFound
	ErrCodeInternal   = shared.CodeInternal
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Register and commentary failures are upstream problems, so they map
// to 502 rather than blaming the caller or this service.
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeInvalidReference:    http.StatusBadRequest,
	shared.CodeMalformedIdentifier: http.StatusBadRequest,
	ErrCodeBadRequest:              http.StatusBadRequest,

	shared.CodeNotFound: http.StatusNotFound,

	shared.CodeExtractionFailed: http.StatusBadGateway,
	shared.CodeCommentaryFailed: http.StatusBadGateway,

	shared.CodeRenderFailed:        http.StatusInternalServerError,
	shared.CodeResourceUnavailable: http.StatusServiceUnavailable,

	shared.CodeCacheComputationFailed: http.StatusInternalServerError,
	shared.CodeInternal:               http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes default to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
