package planner

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// Pricing holds the USD price of 1000 units of generator input & output.
type Pricing struct {
	InputPer1K  decimal.Decimal
	OutputPer1K decimal.Decimal
}

func NewPricing(inputPer1K, outputPer1K string) (Pricing, error) {
	in, err := decimal.NewFromString(inputPer1K)
	if err != nil {
		return Pricing{}, errors.Wrap(err, "parsing input price")
	}
	out, err := decimal.NewFromString(outputPer1K)
	if err != nil {
		return Pricing{}, errors.Wrap(err, "parsing output price")
	}
	if in.IsNegative() || out.IsNegative() {
		return Pricing{}, errors.New("prices cannot be negative")
	}
	return Pricing{InputPer1K: in, OutputPer1K: out}, nil
}

// Cost returns the price of a generation, rounded to 6 decimal places.
func (p Pricing) Cost(inputUnits, outputUnits int) decimal.Decimal {
	if inputUnits < 0 {
		inputUnits = 0
	}
	if outputUnits < 0 {
		outputUnits = 0
	}
	in := p.InputPer1K.Mul(decimal.NewFromInt(int64(inputUnits)))
	out := p.OutputPer1K.Mul(decimal.NewFromInt(int64(outputUnits)))
	return in.Add(out).Div(thousand).Round(6)
}

// EstimateUnits approximates the token count of text (~4 characters per token).
func EstimateUnits(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
