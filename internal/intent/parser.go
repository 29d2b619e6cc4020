package intent

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/vicent00/swap-facade/internal/models"
)

// Intent is a structured swap request extracted from a natural language
// command. Amounts are integer strings in the token's smallest unit.
type Intent struct {
	Direction string `json:"direction"`
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`

	// Exact-input fields.
	AmountIn     string `json:"amount_in,omitempty"`
	MinAmountOut string `json:"min_amount_out,omitempty"`

	// Exact-output fields.
	AmountOut       string `json:"amount_out,omitempty"`
	AmountInMaximum string `json:"amount_in_maximum,omitempty"`
}

var (
	// "swap 100 TOKA for TOKB", optionally "... min 95"
	exactInputPattern = regexp.MustCompile(`^(?:SWAP\s+)?(\d+)\s+([A-Z0-9]+)\s+FOR\s+([A-Z0-9]+)(?:\s+MIN\s+(\d+))?$`)
	// "buy 100 TOKB with at most 120 TOKA"
	exactOutputPattern = regexp.MustCompile(`^BUY\s+(\d+)\s+([A-Z0-9]+)\s+WITH\s+AT\s+MOST\s+(\d+)\s+([A-Z0-9]+)$`)
)

// Parse extracts a swap intent from a command like "swap 100 TOKA for TOKB"
// or "buy 100 TOKB with at most 120 TOKA". Token symbols are uppercased.
func Parse(command string) (*Intent, error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(command), " "))

	if matches := exactInputPattern.FindStringSubmatch(normalized); matches != nil {
		intent := &Intent{
			Direction:    models.DirectionExactInput,
			AmountIn:     matches[1],
			TokenIn:      matches[2],
			TokenOut:     matches[3],
			MinAmountOut: matches[4],
		}
		if err := intent.Validate(); err != nil {
			return nil, err
		}
		return intent, nil
	}

	if matches := exactOutputPattern.FindStringSubmatch(normalized); matches != nil {
		intent := &Intent{
			Direction:       models.DirectionExactOutput,
			AmountOut:       matches[1],
			TokenOut:        matches[2],
			AmountInMaximum: matches[3],
			TokenIn:         matches[4],
		}
		if err := intent.Validate(); err != nil {
			return nil, err
		}
		return intent, nil
	}

	return nil, fmt.Errorf("could not parse swap command %q. Expected 'swap <amount> <token> for <token>' or 'buy <amount> <token> with at most <amount> <token>'", command)
}

// Validate checks field presence and that all amounts are positive integers.
func (i *Intent) Validate() error {
	if i.TokenIn == "" || i.TokenOut == "" {
		return fmt.Errorf("both tokens are required")
	}
	if i.TokenIn == i.TokenOut {
		return fmt.Errorf("tokens must differ")
	}

	switch i.Direction {
	case models.DirectionExactInput:
		if err := validPositive("amount_in", i.AmountIn); err != nil {
			return err
		}
		if i.MinAmountOut != "" {
			if err := validPositive("min_amount_out", i.MinAmountOut); err != nil {
				return err
			}
		}
	case models.DirectionExactOutput:
		if err := validPositive("amount_out", i.AmountOut); err != nil {
			return err
		}
		if err := validPositive("amount_in_maximum", i.AmountInMaximum); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown direction %q", i.Direction)
	}
	return nil
}

func validPositive(field, value string) error {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", field, value)
	}
	return nil
}
