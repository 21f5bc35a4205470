package main

import (
	"flag"

	"texturelend/lending"
)

func runClaimReward(args []string) error {
	fs := flag.NewFlagSet("claim-reward", flag.ExitOnError)
	_, mint, _, decimalsFlag, _ := commonFlags(fs)
	accrued := fs.String("accrued", "0", "reward slot's accrued amount, Q18 minor units")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	mintAddr, err := decodeOrZero(*mint)
	if err != nil {
		return err
	}
	accruedDec, err := parseMinorUnits(*accrued, decimals)
	if err != nil {
		return err
	}

	p := &lending.Position{
		Rewards:     [lending.MaxRewardSlots]lending.RewardSlot{{RewardMint: mintAddr, AccruedAmount: accruedDec}},
		RewardCount: 1,
	}
	out, err := p.ClaimReward(mintAddr, decimals)
	if err != nil {
		return err
	}
	printJSONish("claimed_minor_units", out)
	return nil
}
