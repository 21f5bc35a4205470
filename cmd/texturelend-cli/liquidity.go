package main

import "flag"

func runSupply(args []string) error {
	fs := flag.NewFlagSet("supply", flag.ExitOnError)
	pool, mint, amountFlag, decimalsFlag, _ := commonFlags(fs)
	available := fs.String("available", "0", "reserve's available liquidity before the deposit")
	borrowed := fs.String("borrowed", "0", "reserve's borrowed liquidity before the deposit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	amount, err := parseMinorUnits(*amountFlag, decimals)
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

	r, err := newDemoReserve(*pool, *mint, decimals, availableDec, borrowedDec)
	if err != nil {
		return err
	}
	lpOut, err := r.DepositLiquidity(amount)
	if err != nil {
		return err
	}
	printJSONish(
		"lp_out", lpOut.ToFloor(decimals),
		"available_after", r.Liquidity.AvailableAmount.ToFloor(decimals),
		"lp_total_supply_after", r.Collateral.LPTotalSupply.ToFloor(0),
	)
	return nil
}

func runWithdraw(args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	pool, mint, amountFlag, decimalsFlag, _ := commonFlags(fs)
	available := fs.String("available", "0", "reserve's available liquidity before the withdraw")
	borrowed := fs.String("borrowed", "0", "reserve's borrowed liquidity before the withdraw")
	lpSupply := fs.String("lp-supply", "0", "reserve's LP total supply before the withdraw")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	lpIn, err := parseMinorUnits(*amountFlag, 0)
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

	r, err := newDemoReserve(*pool, *mint, decimals, availableDec, borrowedDec)
	if err != nil {
		return err
	}
	r.Collateral.LPTotalSupply = lpSupplyDec
	liqOut, err := r.WithdrawLiquidity(lpIn)
	if err != nil {
		return err
	}
	printJSONish(
		"liquidity_out", liqOut.ToFloor(decimals),
		"available_after", r.Liquidity.AvailableAmount.ToFloor(decimals),
		"lp_total_supply_after", r.Collateral.LPTotalSupply.ToFloor(0),
	)
	return nil
}
