package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK   bool   `json:"ok"`   // Service health status
	Pair string `json:"pair"` // Configured trading pair
}

// SwapExactInputRequest fixes the amount sold.
type SwapExactInputRequest struct {
	Caller       string `json:"caller"`                   // Ledger account of the swapper
	AmountIn     string `json:"amount_in"`                // Input amount, integer string
	MinAmountOut string `json:"min_amount_out,omitempty"` // Optional output floor
}

// SwapExactOutputRequest fixes the amount bought.
type SwapExactOutputRequest struct {
	Caller          string `json:"caller"`            // Ledger account of the swapper
	AmountOut       string `json:"amount_out"`        // Output amount, integer string
	AmountInMaximum string `json:"amount_in_maximum"` // Spending ceiling pulled into custody
}

// SwapResponse reports the realized amounts of a settled swap.
type SwapResponse struct {
	Direction string `json:"direction"`
	Caller    string `json:"caller"`
	AmountIn  string `json:"amount_in"`  // Input actually consumed
	AmountOut string `json:"amount_out"` // Output delivered to the caller
	Refund    string `json:"refund,omitempty"`
}

// QuoteResponse carries an indicative quote for the configured pair.
type QuoteResponse struct {
	Direction string `json:"direction"`
	Pair      string `json:"pair"`
	Amount    string `json:"amount"` // Amount the quote was requested for
	Quoted    string `json:"quoted"` // Resulting amount on the other side
	FeeTier   uint32 `json:"fee_tier"`
}

// BalancesResponse lists the account's holdings in the pair's tokens.
type BalancesResponse struct {
	Account  string            `json:"account"`
	Balances map[string]string `json:"balances"` // token -> integer string
}

// IntentParseRequest wraps a natural language swap command.
type IntentParseRequest struct {
	Command string `json:"command"`
}

// SwitchUpsertRequest creates or updates an operational switch
type SwitchUpsertRequest struct {
	Key     string `json:"key"`     // Switch key (must match regex pattern)
	Enabled bool   `json:"enabled"` // Switch state
}

// SwitchUpdateRequest updates an existing operational switch
type SwitchUpdateRequest struct {
	Enabled bool `json:"enabled"` // New switch state
}
