package models

import "time"

// Direction of a swap order.
const (
	DirectionExactInput  = "exact_input"
	DirectionExactOutput = "exact_output"
)

// SwapEvent is the observability record emitted once per completed facade
// operation. Amounts are decimal strings so arbitrary-precision values
// survive JSON and storage round trips.
type SwapEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"`
	Caller    string    `json:"caller"`
	Pair      string    `json:"pair"`
	TokenIn   string    `json:"token_in"`
	TokenOut  string    `json:"token_out"`
	AmountIn  string    `json:"amount_in"`
	AmountOut string    `json:"amount_out"`
	FeeTier   uint32    `json:"fee_tier"`
}
