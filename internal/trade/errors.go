package trade

import "errors"

// Validation failures reported to the caller. All of them are business
// errors: the HTTP layer flattens them into a 500 {error, details} payload
// and none of them is fatal to the process.
var (
	ErrUnknownSymbol        = errors.New("symbol not found on exchange")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrBelowMinimumQuantity = errors.New("quantity below exchange minimum")
	ErrBelowMinimumNotional = errors.New("order value below minimum notional")
)
