package main

import (
	"flag"

	"texturelend/lending"
)

func runLiquidate(args []string) error {
	fs := flag.NewFlagSet("liquidate", flag.ExitOnError)
	_, _, amountFlag, decimalsFlag, _ := commonFlags(fs)
	ltvBps := fs.Uint64("ltv-bps", 0, "position's current LTV, bps")
	partlyBps := fs.Uint64("partly-bps", 8000, "partly-unhealthy LTV threshold, bps")
	fullyBps := fs.Uint64("fully-bps", 9000, "fully-unhealthy LTV threshold, bps")
	bonusBps := fs.Uint64("bonus-bps", 500, "liquidation bonus, bps")
	factorBps := fs.Uint64("factor-bps", 5000, "partial liquidation factor, bps")
	borrowedValue := fs.String("borrowed-value", "0", "position's total borrowed value, Q18")
	borrowMarketValue := fs.String("borrow-market-value", "0", "targeted borrow record's market value, Q18")
	borrowAmount := fs.String("borrow-amount", "0", "targeted borrow record's outstanding amount, minor units")
	collateralMarketValue := fs.String("collateral-market-value", "0", "targeted collateral record's market value, Q18")
	collateralDeposited := fs.String("collateral-deposited", "0", "targeted collateral record's deposited LP amount")
	maxAmount := fs.Bool("max", false, "liquidate the maximum permissible amount")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	borrowedValueDec, err := parsePrice(*borrowedValue)
	if err != nil {
		return err
	}
	borrowMarketValueDec, err := parsePrice(*borrowMarketValue)
	if err != nil {
		return err
	}
	borrowAmountDec, err := parseMinorUnits(*borrowAmount, decimals)
	if err != nil {
		return err
	}
	collateralMarketValueDec, err := parsePrice(*collateralMarketValue)
	if err != nil {
		return err
	}
	collateralDepositedDec, err := parseMinorUnits(*collateralDeposited, 0)
	if err != nil {
		return err
	}

	var amount lending.Amount
	if *maxAmount {
		amount = lending.MaxAmount()
	} else {
		exact, err := parseMinorUnits(*amountFlag, decimals)
		if err != nil {
			return err
		}
		amount = lending.ExactAmount(exact)
	}

	result, err := lending.LiquidationMath(lending.LiquidationInput{
		Amount:                    amount,
		LTVBps:                    *ltvBps,
		PartlyUnhealthyLTVBps:     *partlyBps,
		FullyUnhealthyLTVBps:      *fullyBps,
		LiquidationBonusBps:       *bonusBps,
		PartialLiquidationFactor:  *factorBps,
		BorrowedValue:             borrowedValueDec,
		BorrowMarketValue:         borrowMarketValueDec,
		BorrowBorrowedAmount:      borrowAmountDec,
		CollateralMarketValue:     collateralMarketValueDec,
		CollateralDepositedAmount: collateralDepositedDec,
		PrincipalDecimals:         decimals,
	})
	if err != nil {
		return err
	}
	printJSONish(
		"repay_amount_minor_units", result.RepayAmount,
		"withdraw_amount_lp", result.WithdrawAmount,
	)
	return nil
}
