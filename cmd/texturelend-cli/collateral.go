package main

import (
	"flag"

	"texturelend/lending"
)

func runLock(args []string) error {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	pool, mint, amountFlag, decimalsFlag, priceFlag := commonFlags(fs)
	available := fs.String("available", "0", "reserve's available liquidity")
	borrowed := fs.String("borrowed", "0", "reserve's borrowed liquidity")
	lpSupply := fs.String("lp-supply", "1", "reserve's LP total supply")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	lpAmount, err := parseMinorUnits(*amountFlag, 0)
	if err != nil {
		return err
	}
	availableDec, err := parseMinorUnits(*available, decimals)
	if err != nil {
		return err
	}
	borrowedDec, err := parseMinorUnits(*borrowed, decimals)
	if err != nil {
		return err
	}
	lpSupplyDec, err := parseMinorUnits(*lpSupply, 0)
	if err != nil {
		return err
	}
	price, err := parsePrice(*priceFlag)
	if err != nil {
		return err
	}

	r, err := newDemoReserve(*pool, *mint, decimals, availableDec, borrowedDec)
	if err != nil {
		return err
	}
	r.Collateral.LPTotalSupply = lpSupplyDec
	r.Liquidity.MarketPrice = price
	lpPrice, err := r.LPMarketPrice()
	if err != nil {
		return err
	}

	p := &lending.Position{PoolID: *pool}
	idx, err := p.FindOrAddCollateral(r.Key())
	if err != nil {
		return err
	}
	if err := p.Collateral[idx].DepositCollateral(lpAmount, lpPrice, 0); err != nil {
		return err
	}
	printJSONish(
		"lp_market_price", lpPrice,
		"deposited_amount", p.Collateral[idx].DepositedAmount.ToFloor(0),
		"entry_market_value", p.Collateral[idx].EntryMarketValue,
	)
	return nil
}

func runUnlock(args []string) error {
	fs := flag.NewFlagSet("unlock", flag.ExitOnError)
	_, _, amountFlag, _, _ := commonFlags(fs)
	depositedAmount := fs.String("deposited", "0", "collateral record's deposited LP amount")
	entryValue := fs.String("entry-value", "0", "collateral record's entry market value, Q18")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lpOut, err := parseMinorUnits(*amountFlag, 0)
	if err != nil {
		return err
	}
	depositedDec, err := parseMinorUnits(*depositedAmount, 0)
	if err != nil {
		return err
	}
	entryDec, err := parsePrice(*entryValue)
	if err != nil {
		return err
	}

	rec := &lending.CollateralRecord{DepositedAmount: depositedDec, EntryMarketValue: entryDec}
	if err := rec.WithdrawCollateral(lpOut); err != nil {
		return err
	}
	printJSONish(
		"deposited_amount_after", rec.DepositedAmount.ToFloor(0),
		"entry_market_value_after", rec.EntryMarketValue,
	)
	return nil
}
