package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"SettlementEngine/internal/settlement"
)

// ErrTypeViolation marks an amount that is not an integer number of pennies.
var ErrTypeViolation = errors.New("amount is not an integer")

// ParseAmount converts a dynamically typed amount to pennies. Only integer
// kinds are accepted: a float is rejected even when it has no fraction.
func ParseAmount(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, typeViolation(v, "overflows int64")
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, typeViolation(v, "overflows int64")
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, typeViolation(v, err.Error())
		}
		return i, nil
	case decimal.Decimal:
		if !n.Equal(n.Truncate(0)) {
			return 0, typeViolation(v, "has a fractional part")
		}
		return n.IntPart(), nil
	default:
		return 0, typeViolation(v, "unsupported type")
	}
}

func typeViolation(v any, detail string) error {
	return fmt.Errorf("%w: %w", ErrTypeViolation, &settlement.ValidationError{
		Op:      "parse_amount",
		Reason:  settlement.ReasonTypeViolation,
		Message: fmt.Sprintf("%v (%T) %s", v, v, detail),
	})
}
