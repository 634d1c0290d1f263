package penmarket

import "fmt"

// PurchaseError represents a purchase-flow specific error
type PurchaseError struct {
	Code    string
	Message string
	Err     error // underlying cause, if any
}

func (e *PurchaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PurchaseError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeWalletRequired    = "wallet_required"
	ErrCodeInvalidPrice      = "invalid_price"
	ErrCodeInsufficientFunds = "insufficient_funds"
	ErrCodeChainQueryFailed  = "chain_query_failed"
	ErrCodeUserRejected      = "user_rejected"
	ErrCodeNetworkError      = "network_error"
	ErrCodeChainRejected     = "chain_rejected"
	ErrCodeUnknown           = "unknown"
)

// NewPurchaseError creates a new purchase error
func NewPurchaseError(code, message string) *PurchaseError {
	return &PurchaseError{
		Code:    code,
		Message: message,
	}
}
