package main

import (
	"flag"

	"texturelend/address"
	"texturelend/decimal"
	"texturelend/lending"
)

// newDemoReserve builds a Reserve with just enough state for one offline
// math call: the CLI never persists state, so every command starts from a
// fresh snapshot built entirely out of its flags.
func newDemoReserve(pool, mint string, decimals uint8, available, borrowed decimal.Dec) (*lending.Reserve, error) {
	mintAddr, err := decodeOrZero(mint)
	if err != nil {
		return nil, err
	}
	total, err := available.Add(borrowed)
	if err != nil {
		return nil, err
	}
	ceiling, err := total.Add(decimal.FromInt64(1_000_000_000))
	if err != nil {
		return nil, err
	}
	return &lending.Reserve{
		PoolID: pool,
		Liquidity: lending.Liquidity{
			LiquidityMint:        mintAddr,
			MintDecimals:         decimals,
			AvailableAmount:      available,
			BorrowedAmount:       borrowed,
			CumulativeBorrowRate: decimal.One(),
		},
		Collateral: lending.Collateral{},
		Config: lending.ReserveConfig{
			MaxTotalLiquidity:         ceiling,
			MaxBorrowUtilizationBps:   10_000,
			MaxWithdrawUtilizationBps: 10_000,
		},
	}, nil
}

func decodeOrZero(s string) (address.Address, error) {
	if s == "" {
		return address.Address{}, nil
	}
	return address.Decode(s)
}

func commonFlags(fs *flag.FlagSet) (pool, mint, amount *string, decimals *uint, price *string) {
	pool = fs.String("pool", "demo-pool", "pool identifier")
	mint = fs.String("mint", "", "bech32 liquidity mint address")
	amount = fs.String("amount", "0", "minor-unit integer amount")
	decimals = fs.Uint("decimals", 6, "mint decimals")
	price = fs.String("price", "", "market price per whole token, as a raw Q18 integer")
	return
}
