package bridge

import "fmt"

// KindCoreFailure is the only error kind the bridge reports.
const KindCoreFailure = "core_operation_failed"

// Error is the rejection delivered when a core call fails.
type Error struct {
	Op      string
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func coreFailure(op string, err error) *Error {
	return &Error{Op: op, Kind: KindCoreFailure, Message: err.Error(), Err: err}
}
