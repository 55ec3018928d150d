package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeString(t *testing.T) {
	tests := []struct {
		name     string
		code     StatusCode
		expected string
	}{
		{name: "ok", code: StatusOK, expected: "OK"},
		{name: "not found", code: StatusNotFound, expected: "NOT_FOUND"},
		{name: "already exists", code: StatusAlreadyExists, expected: "ALREADY_EXISTS"},
		{name: "aborted retryable", code: StatusErrAbortedRetryable, expected: "ERR_ABORTED_RETRYABLE"},
		{name: "write without write preserve", code: StatusErrWriteWithoutWritePreserve, expected: "ERR_WRITE_WITHOUT_WRITE_PRESERVE"},
		{name: "read area violation", code: StatusErrReadAreaViolation, expected: "ERR_READ_AREA_VIOLATION"},
		{name: "unregistered code falls back to unknown", code: StatusCode(999), expected: "ERR_UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.String())
		})
	}
}

func TestStatusCodeIsOK(t *testing.T) {
	assert.True(t, StatusOK.IsOK())
	assert.False(t, StatusNotFound.IsOK())
	assert.False(t, StatusErrAbortedRetryable.IsOK())
}

// TestStatusCodeIsRetryableAbort pins down the exact membership of the
// retryable-abort set: a caller that gets true back must discard
// its transaction and start a fresh one rather than retry in place.
func TestStatusCodeIsRetryableAbort(t *testing.T) {
	tests := []struct {
		name     string
		code     StatusCode
		expected bool
	}{
		{name: "aborted retryable", code: StatusErrAbortedRetryable, expected: true},
		{name: "conflict on write preserve", code: StatusErrConflictOnWritePreserve, expected: true},
		{name: "read area violation", code: StatusErrReadAreaViolation, expected: true},
		{name: "write without write preserve", code: StatusErrWriteWithoutWritePreserve, expected: true},
		{name: "ok is not retryable", code: StatusOK, expected: false},
		{name: "not found is not retryable", code: StatusNotFound, expected: false},
		{name: "already exists is not retryable", code: StatusAlreadyExists, expected: false},
		{name: "io error is not retryable", code: StatusErrIOError, expected: false},
		{name: "invalid argument is not retryable", code: StatusErrInvalidArgument, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.IsRetryableAbort())
		})
	}
}

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected string
	}{
		{name: "ok", code: ErrorOK, expected: "OK"},
		{name: "generic", code: ErrorGeneric, expected: "ERROR"},
		{name: "kvs key not found", code: ErrorKVSKeyNotFound, expected: "KVS_KEY_NOT_FOUND"},
		{name: "cc occ read error", code: ErrorCCOCCReadError, expected: "CC_OCC_READ_ERROR"},
		{name: "unregistered code falls back to generic label", code: ErrorCode(999), expected: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.String())
		})
	}
}

func TestPutOperationString(t *testing.T) {
	assert.Equal(t, "CREATE_OR_UPDATE", PutCreateOrUpdate.String())
	assert.Equal(t, "CREATE", PutCreate.String())
	assert.Equal(t, "UPDATE", PutUpdate.String())
}

func TestEndPointKindString(t *testing.T) {
	tests := []struct {
		kind     EndPointKind
		expected string
	}{
		{EndPointUnbound, "UNBOUND"},
		{EndPointInclusive, "INCLUSIVE"},
		{EndPointExclusive, "EXCLUSIVE"},
		{EndPointPrefixedInclusive, "PREFIXED_INCLUSIVE"},
		{EndPointPrefixedExclusive, "PREFIXED_EXCLUSIVE"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestTransactionTypeString(t *testing.T) {
	assert.Equal(t, "SHORT", TransactionTypeShort.String())
	assert.Equal(t, "LONG", TransactionTypeLong.String())
	assert.Equal(t, "READ_ONLY", TransactionTypeReadOnly.String())
}

func TestTransactionStateKindString(t *testing.T) {
	tests := []struct {
		state    TransactionStateKind
		expected string
	}{
		{TxStateWaitingStart, "WAITING_START"},
		{TxStateStarted, "STARTED"},
		{TxStateWaitingCCCommit, "WAITING_CC_COMMIT"},
		{TxStateAborted, "ABORTED"},
		{TxStateWaitingDurable, "WAITING_DURABLE"},
		{TxStateDurable, "DURABLE"},
		{TransactionStateKind(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
