package errors

import "net/http"

// ErrorCode is a string identifier for a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeDatabaseError      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeStorageError       ErrorCode = "COMMON_009"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_010"
	ErrCodeNotImplemented     ErrorCode = "COMMON_011"
)

// Molecule error codes.  Raised while converting an input molecule into
// fingerprint keys; always recoverable per-item during dataset analysis and
// batch scoring.
const (
	ErrCodeMoleculeInvalidSMILES  ErrorCode = "MOL_001"
	ErrCodeMoleculeEmpty          ErrorCode = "MOL_002"
	ErrCodeKeyExtractionFailed    ErrorCode = "MOL_003"
	ErrCodeFingerprintUnsupported ErrorCode = "MOL_004"
)

// Estimator error codes.  Raised by the likelihood models and their
// persistence layer.
const (
	ErrCodeModelKindUnsupported  ErrorCode = "EST_001"
	ErrCodeCorruptDocument       ErrorCode = "EST_002"
	ErrCodeFormatVersionMismatch ErrorCode = "EST_003"
	ErrCodeModelKindMismatch     ErrorCode = "EST_004"
	ErrCodeModelNotFound         ErrorCode = "EST_005"
)

// Short aliases used at call sites throughout the codebase.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeValidation   = ErrCodeValidation
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps every ErrorCode to the HTTP status the API layer
// responds with.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMoleculeInvalidSMILES:  http.StatusBadRequest,
	ErrCodeMoleculeEmpty:          http.StatusBadRequest,
	ErrCodeKeyExtractionFailed:    http.StatusUnprocessableEntity,
	ErrCodeFingerprintUnsupported: http.StatusBadRequest,

	ErrCodeModelKindUnsupported:  http.StatusBadRequest,
	ErrCodeCorruptDocument:       http.StatusInternalServerError,
	ErrCodeFormatVersionMismatch: http.StatusInternalServerError,
	ErrCodeModelKindMismatch:     http.StatusConflict,
	ErrCodeModelNotFound:         http.StatusNotFound,
}

// HTTPStatusForCode returns the HTTP status for an ErrorCode, defaulting to
// 500 for codes without an explicit mapping.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the ErrorCode maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}
