package main

import (
	"flag"
	"fmt"
	"time"

	"texturelend/config"
	"texturelend/lending"
)

func runProposeConfig(args []string) error {
	fs := flag.NewFlagSet("propose-config", flag.ExitOnError)
	field := fs.String("field", "", "config field name, e.g. MaxBorrowLTVBps")
	timelockSec := fs.Int64("timelock-sec", 0, "timelock duration for this field, seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bit, ok := config.FieldBitByName[*field]
	if !ok {
		return fmt.Errorf("unknown config field %q", *field)
	}

	r := &lending.Reserve{}
	timelocks := lending.FieldTimelocks{bit: *timelockSec}
	now := time.Now().Unix()
	slot, err := lending.ProposeConfigChange(r, bit, lending.ReserveConfig{}, timelocks, now)
	if err != nil {
		return err
	}
	proposal := r.ProposedConfigs[slot]
	printJSONish(
		"slot", slot,
		"apply_not_before_unix", proposal.ApplyNotBeforeUnix,
	)
	return nil
}

func runApplyConfig(args []string) error {
	fs := flag.NewFlagSet("apply-config", flag.ExitOnError)
	field := fs.String("field", "", "config field name, e.g. MaxBorrowLTVBps")
	elapsedSec := fs.Int64("elapsed-sec", 0, "seconds elapsed since the proposal was made")
	timelockSec := fs.Int64("timelock-sec", 0, "the field's configured timelock duration, seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bit, ok := config.FieldBitByName[*field]
	if !ok {
		return fmt.Errorf("unknown config field %q", *field)
	}

	r := &lending.Reserve{}
	proposedAt := int64(0)
	timelocks := lending.FieldTimelocks{bit: *timelockSec}
	if _, err := lending.ProposeConfigChange(r, bit, lending.ReserveConfig{}, timelocks, proposedAt); err != nil {
		return err
	}
	if err := lending.ApplyConfigProposal(r, 0, proposedAt+*elapsedSec); err != nil {
		return err
	}
	printJSONish("applied", true)
	return nil
}

func runWriteOff(args []string) error {
	fs := flag.NewFlagSet("write-off", flag.ExitOnError)
	decimalsFlag := fs.Uint("decimals", 6, "mint decimals")
	amountFlag := fs.String("amount", "0", "minor-unit amount to write off")
	reserveBorrowed := fs.String("reserve-borrowed", "0", "reserve's total borrowed amount, minor units")
	positionBorrowed := fs.String("position-borrowed", "0", "borrow record's outstanding amount, minor units")
	maxAmount := fs.Bool("max", false, "write off the full outstanding borrow")
	if err := fs.Parse(args); err != nil {
		return err
	}

	decimals := uint8(*decimalsFlag)
	reserveBorrowedDec, err := parseMinorUnits(*reserveBorrowed, decimals)
	if err != nil {
		return err
	}
	positionBorrowedDec, err := parseMinorUnits(*positionBorrowed, decimals)
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

	newReserveBorrowed, newPositionBorrowed, reduced, err := lending.WriteOffBadDebt(amount, reserveBorrowedDec, positionBorrowedDec)
	if err != nil {
		return err
	}
	printJSONish(
		"reduced", reduced.ToFloor(decimals),
		"reserve_borrowed_after", newReserveBorrowed.ToFloor(decimals),
		"position_borrowed_after", newPositionBorrowed.ToFloor(decimals),
	)
	return nil
}
