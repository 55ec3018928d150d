package kv

import "fmt"

// CallResult is the post-mortem diagnostic view of a transaction's most
// recent content-operation outcome.
type CallResult struct {
	Status      StatusCode
	ErrorCode   ErrorCode
	Locator     *ErrorLocator
	Description string
}

// String renders a human-readable summary, the form the CLI prints on
// failure.
func (r CallResult) String() string {
	if r.Locator != nil {
		return fmt.Sprintf("%s (%s): %s [storage=%q key=%q]", r.Status, r.ErrorCode, r.Description, r.Locator.StorageName, r.Locator.Key)
	}
	return fmt.Sprintf("%s (%s): %s", r.Status, r.ErrorCode, r.Description)
}
