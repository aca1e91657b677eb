package pipeline

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Action is a button on the prediction form.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionReset  Action = "reset"

	pricePrefix = "Predicted Car Price: $"
	errorPrefix = "Error: "
)

// ErrUnknownAction is returned for form actions other than submit and reset.
var ErrUnknownAction = errors.New("unknown form action")

// FormResult is the state the form should render after an action.
// Nil fields render as empty inputs.
type FormResult struct {
	Transmission *int
	MaxPower     *float64
	Message      string
	Estimate     *Estimate
}

// HandleForm applies a form action. Prediction failures are reported in
// Message, never as an error; the error return is only for unknown actions.
func (p *Pipeline) HandleForm(action Action, transmission *int, maxPower *float64) (FormResult, error) {
	switch action {
	case ActionSubmit:
		est, err := p.Estimate(transmission, maxPower)
		t, mp := est.Features.Transmission, est.Features.MaxPower
		res := FormResult{Transmission: &t, MaxPower: &mp}
		if err != nil {
			res.Message = FormatError(err)
			return res, nil
		}
		res.Message = FormatPrice(est.Price)
		res.Estimate = &est
		return res, nil

	case ActionReset:
		return FormResult{}, nil

	default:
		return FormResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// FormatPrice renders a price with two decimals and a thousands separator.
func FormatPrice(price float64) string {
	return pricePrefix + FormatAmount(price)
}

// FormatAmount rounds to two decimals and groups the whole part by thousands.
// The whole part is grouped as a big.Int so values past int64 keep their digits.
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return sign + s // NaN, Inf
	}
	return sign + humanize.BigComma(n) + "." + frac
}

func FormatError(err error) string {
	return errorPrefix + err.Error()
}
