package payment

import "fmt"

// Provider error kinds.
const (
	KindCheckout = "checkout"
	KindLookup   = "lookup"
)

// ProviderError is returned when the payment provider rejects or fails a call.
// Msg is the provider's own message and is safe to show to the caller.
type ProviderError struct {
	Kind string
	Msg  string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s failed: %s", e.Kind, e.Msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
