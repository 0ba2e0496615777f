package search

import (
	"errors"
	"fmt"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorStatus          OperationErrorCode = "status_failed"
	OperationErrorCircuitOpen     OperationErrorCode = "circuit_open"
	OperationErrorRateLimited     OperationErrorCode = "rate_limited"
)

var ErrNotFound = errors.New("search document not found")

type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "search operation failed"
	}
	if e.Message != "" {
		return fmt.Sprintf("search operation failed (op=%s code=%s status=%d): %s", e.Operation, e.Code, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("search operation failed (op=%s code=%s status=%d): %v", e.Operation, e.Code, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("search operation failed (op=%s code=%s status=%d)", e.Operation, e.Code, e.StatusCode)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func opErr(op string, code OperationErrorCode, status int, msg string, cause error) error {
	return &OperationError{
		Code:       code,
		Operation:  op,
		StatusCode: status,
		Message:    msg,
		Cause:      cause,
	}
}

// IsCode 判断错误链上是否存在指定错误码的 OperationError
func IsCode(err error, code OperationErrorCode) bool {
	var oe *OperationError
	return errors.As(err, &oe) && oe.Code == code
}
