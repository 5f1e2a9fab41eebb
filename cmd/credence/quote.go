package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credencemarkets/credence/lmsr"
	"github.com/credencemarkets/credence/types"
)

// quoteCmd estimates a trade with the floating-point estimator. The output
// is advisory: it is meant for choosing slippage bounds before submitting
// the real trade against the exact engine.
func quoteCmd() *cobra.Command {
	var (
		liquidity float64
		trust     uint64
		distrust  uint64
		budget    float64
		side      string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Estimate a trade (advisory only, floating-point)",
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := types.ParseSide(side)
			if err != nil {
				return err
			}
			est := lmsr.Estimator{B: liquidity}
			price := est.Price(float64(trust), float64(distrust), s)
			votes := est.VotesForBudget(float64(trust), float64(distrust), budget, s)
			cost := est.Cost(float64(trust), float64(distrust), votes, s)

			fmt.Printf("side:            %s\n", s)
			fmt.Printf("marginal price:  %.6f\n", price)
			fmt.Printf("estimated votes: %.2f for a budget of %.6f (cost %.6f)\n", votes, budget, cost)
			fmt.Println("advisory estimate only; the engine prices trades in exact fixed point")
			return nil
		},
	}
	cmd.Flags().Float64Var(&liquidity, "liquidity", 1000, "liquidity parameter in votes")
	cmd.Flags().Uint64Var(&trust, "trust", 0, "current trust votes")
	cmd.Flags().Uint64Var(&distrust, "distrust", 0, "current distrust votes")
	cmd.Flags().Float64Var(&budget, "budget", 1, "normalized budget (basePrice = 1)")
	cmd.Flags().StringVar(&side, "side", "trust", "side to quote: trust or distrust")
	return cmd
}
