package vectorize

import "fmt"

// DefaultQuotaCode is used when the proxy's 429 body carries no code.
const DefaultQuotaCode = "QUOTA_EXCEEDED"

// QuotaError means the remote proxy rejected the operation because the
// tenant's vector-index quota is exhausted.
type QuotaError struct {
	Code    string
	Message string
	// ResetIn is the number of seconds until the quota window resets.
	ResetIn int64
}

func (e *QuotaError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (resets in %ds)", e.Code, e.Message, e.ResetIn)
	}
	return fmt.Sprintf("%s (resets in %ds)", e.Code, e.ResetIn)
}

// OperationError means the remote call failed for a non-quota reason.
type OperationError struct {
	Op      string
	Message string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("vectorize %s failed: %s", e.Op, e.Message)
}
