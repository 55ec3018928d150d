package kv

import "github.com/tsurugidb/sharksfin-go/pkg/kvlog"

// ExecOutcome is the terminal decision an ExecCallback returns.
type ExecOutcome int

const (
	ExecCommit ExecOutcome = iota
	ExecRollback
	ExecError
	ExecRetry
)

// ExecCallback runs user logic against a freshly begun transaction's
// primary handle and decides how TransactionExec should conclude it.
type ExecCallback func(h *TxHandle) ExecOutcome

// DefaultMaxExecRetries bounds transaction_exec's retry loop when the
// caller does not supply one (see DESIGN.md).
const DefaultMaxExecRetries = 32

// TransactionExec is a retry shim: it begins a transaction, invokes
// callback, then commits, aborts with StatusUserRollback, aborts with
// StatusErrUserError, or aborts and restarts on ExecRetry or
// StatusErrAbortedRetryable. maxRetries<=0 uses DefaultMaxExecRetries.
func TransactionExec(db *Database, opts TransactionOptions, maxRetries int, callback ExecCallback) StatusCode {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxExecRetries
	}

	var last StatusCode
	for attempt := 0; attempt < maxRetries; attempt++ {
		tc, status := db.TransactionBegin(opts)
		if status != StatusOK {
			return status
		}
		h, status := tc.BorrowHandle()
		if status != StatusOK {
			tc.Dispose()
			return status
		}

		outcome := callback(h)

		switch outcome {
		case ExecCommit:
			last = tc.Commit()
			if last.IsRetryableAbort() {
				continue
			}
			return last
		case ExecRollback:
			tc.Abort(true)
			return StatusUserRollback
		case ExecError:
			tc.Abort(true)
			return StatusErrUserError
		case ExecRetry:
			tc.Abort(true)
			continue
		default:
			tc.Abort(true)
			return StatusErrInvalidArgument
		}
	}
	kvlog.Warn("transaction_exec exhausted retry budget")
	return StatusErrAbortedRetryable
}
