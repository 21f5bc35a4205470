package main

import (
	"flag"

	"texturelend/lending"
)

func runBorrow(args []string) error {
	fs := flag.NewFlagSet("borrow", flag.ExitOnError)
	_, _, amountFlag, decimalsFlag, priceFlag := commonFlags(fs)
	vMax := fs.String("collateral-value", "0", "remaining borrowable value, Q18")
	available := fs.String("available", "0", "reserve's available liquidity, minor units")
	curatorFeeBps := fs.Uint64("curator-fee-bps", 0, "curator borrow fee rate, bps")
	textureFeeBps := fs.Uint64("texture-fee-bps", 0, "texture borrow fee rate, bps")
	maxAmount := fs.Bool("max", false, "request the maximum permissible borrow amount")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	price, err := parsePrice(*priceFlag)
	if err != nil {
		return err
	}
	vMaxDec, err := parsePrice(*vMax)
	if err != nil {
		return err
	}
	availableDec, err := parseMinorUnits(*available, decimals)
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

	result, err := lending.BorrowMath(amount, vMaxDec, price, availableDec, *curatorFeeBps, *textureFeeBps, decimals)
	if err != nil {
		return err
	}
	printJSONish(
		"borrow_amount", result.BorrowAmount.ToFloor(decimals),
		"curator_fee", result.CuratorFee.ToFloor(decimals),
		"texture_fee", result.TextureFee.ToFloor(decimals),
		"receive_amount", result.ReceiveAmount.ToFloor(decimals),
	)
	return nil
}

func runRepay(args []string) error {
	fs := flag.NewFlagSet("repay", flag.ExitOnError)
	_, _, amountFlag, decimalsFlag, _ := commonFlags(fs)
	borrowed := fs.String("borrowed", "0", "borrow record's outstanding amount, minor units")
	maxAmount := fs.Bool("max", false, "repay the full outstanding balance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	borrowedDec, err := parseMinorUnits(*borrowed, decimals)
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

	result, err := lending.RepayMath(amount, borrowedDec, decimals)
	if err != nil {
		return err
	}
	printJSONish(
		"settle_amount", result.SettleAmount.ToFloor(decimals),
		"repay_amount_minor_units", result.RepayAmount,
	)
	return nil
}
