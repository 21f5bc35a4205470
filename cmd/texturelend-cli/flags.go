package main

import (
	"fmt"
	"math/big"

	"texturelend/decimal"
)

// parseMinorUnits parses a base-10 integer flag value (minor-unit amount, no
// decimal point) into a Q18 Dec, given the mint's decimals.
func parseMinorUnits(s string, decimals uint8) (decimal.Dec, error) {
	if s == "" {
		return decimal.Zero(), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Dec{}, fmt.Errorf("invalid integer amount %q", s)
	}
	return decimal.FromMinorUnits(v, decimals), nil
}

// parsePrice parses a flag holding a price per whole token (see the
// reserve's MarketPrice convention), written as a raw Q18 integer
// (1000000000000000000 is 1.0) and read via FromMinorUnits at full Q18
// scale. An empty flag yields 1.0.
func parsePrice(s string) (decimal.Dec, error) {
	if s == "" {
		return decimal.One(), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Dec{}, fmt.Errorf("invalid integer price %q", s)
	}
	return decimal.FromMinorUnits(v, 18), nil
}

func printJSONish(pairs ...any) {
	if len(pairs)%2 != 0 {
		panic("printJSONish: odd argument count")
	}
	fmt.Println("{")
	for i := 0; i < len(pairs); i += 2 {
		comma := ","
		if i == len(pairs)-2 {
			comma = ""
		}
		fmt.Printf("  %q: %v%s\n", pairs[i], pairs[i+1], comma)
	}
	fmt.Println("}")
}
