package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "supply":
		err = runSupply(args)
	case "withdraw":
		err = runWithdraw(args)
	case "lock":
		err = runLock(args)
	case "unlock":
		err = runUnlock(args)
	case "borrow":
		err = runBorrow(args)
	case "repay":
		err = runRepay(args)
	case "liquidate":
		err = runLiquidate(args)
	case "claim-reward":
		err = runClaimReward(args)
	case "propose-config":
		err = runProposeConfig(args)
	case "apply-config":
		err = runApplyConfig(args)
	case "write-off":
		err = runWriteOff(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: texturelend-cli <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  supply           -pool -mint -amount -decimals -price")
	fmt.Println("  withdraw         -pool -mint -amount -decimals -price")
	fmt.Println("  lock             -pool -mint -amount -decimals -price -available -borrowed -lp-supply")
	fmt.Println("  unlock           -amount -deposited -entry-value")
	fmt.Println("  borrow           -pool -mint -amount -decimals -price -collateral-value -curator-fee-bps -texture-fee-bps")
	fmt.Println("  repay            -pool -mint -amount -decimals -borrowed")
	fmt.Println("  liquidate        -pool -mint -amount -decimals -ltv-bps -partly-bps -fully-bps -bonus-bps -factor-bps")
	fmt.Println("  claim-reward     -pool -mint -decimals -accrued")
	fmt.Println("  propose-config   -field -timelock-sec")
	fmt.Println("  apply-config     -field -elapsed-sec -timelock-sec")
	fmt.Println("  write-off        -amount -decimals -reserve-borrowed -position-borrowed -max")
	fmt.Println()
	fmt.Println("This is a reference dispatcher: each invocation exercises the named")
	fmt.Println("orchestrator or engine operation against a fresh in-memory snapshot built")
	fmt.Println("from the supplied flags and prints the resulting state deltas; it holds no")
	fmt.Println("persistent ledger of its own (see spec.md for the chain/node side of that).")
}
