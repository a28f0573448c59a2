package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"

	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Wheel engine error codes.
//
// ErrCodeWheelEmptyInput and ErrCodeWheelEmpty are empty-state conditions:
// callers render a "no data yet" UI rather than treating them as failures.
// ErrCodeWheelInvalidHierarchy is a defensive invariant check that should
// never fire when the aggregator built the hierarchy.
const (
	ErrCodeWheelEmptyInput       ErrorCode = "WHL_001"
	ErrCodeWheelEmpty            ErrorCode = "WHL_002"
	ErrCodeWheelInvalidHierarchy ErrorCode = "WHL_003"
	ErrCodeWheelTypeInvalid      ErrorCode = "WHL_004"
	ErrCodeWheelScopeInvalid     ErrorCode = "WHL_005"
	ErrCodeWheelNotFound         ErrorCode = "WHL_006"
	ErrCodeWheelExportFailed     ErrorCode = "WHL_007"
)

// Tasting module error codes.
const (
	ErrCodeTastingNotFound    ErrorCode = "TST_001"
	ErrCodeTastingTypeInvalid ErrorCode = "TST_002"
	ErrCodeTastingConflict    ErrorCode = "TST_003"
)

// Descriptor / extraction module error codes.
const (
	ErrCodeDescriptorTypeInvalid  ErrorCode = "EXT_001"
	ErrCodeDescriptorMissingField ErrorCode = "EXT_002"
	ErrCodeExtractionFailed       ErrorCode = "EXT_003"
	ErrCodeExtractionUnavailable  ErrorCode = "EXT_004"
	ErrCodeSearchFailed           ErrorCode = "EXT_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.  Codes absent
// from the map default to 500 via HTTPStatus.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	// Empty-state wheel codes intentionally map to 200: the API returns an
	// empty-state payload, not an error status.
	ErrCodeWheelEmptyInput:       http.StatusOK,
	ErrCodeWheelEmpty:            http.StatusOK,
	ErrCodeWheelInvalidHierarchy: http.StatusInternalServerError,
	ErrCodeWheelTypeInvalid:      http.StatusBadRequest,
	ErrCodeWheelScopeInvalid:     http.StatusBadRequest,
	ErrCodeWheelNotFound:         http.StatusNotFound,
	ErrCodeWheelExportFailed:     http.StatusInternalServerError,

	ErrCodeTastingNotFound:    http.StatusNotFound,
	ErrCodeTastingTypeInvalid: http.StatusBadRequest,
	ErrCodeTastingConflict:    http.StatusConflict,

	ErrCodeDescriptorTypeInvalid:  http.StatusBadRequest,
	ErrCodeDescriptorMissingField: http.StatusBadRequest,
	ErrCodeExtractionFailed:       http.StatusBadGateway,
	ErrCodeExtractionUnavailable:  http.StatusServiceUnavailable,
	ErrCodeSearchFailed:           http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status code for an ErrorCode, defaulting to
// 500 for unmapped codes.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := ErrorCodeHTTPStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
