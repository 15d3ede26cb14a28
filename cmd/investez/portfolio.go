package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/investez/pkg/models"
	"github.com/seenimoa/investez/pkg/utils"
)

// ── Portfolio Command ──

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show the consolidated portfolio across brokers",
	Long: `Show holdings merged across Zerodha Kite and Groww, with P&L,
market-cap enrichment and allocation breakdowns:

  investez portfolio
  investez portfolio --holdings
  investez portfolio --mf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		agg := d.aggregator()

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()

		holdingsOnly, _ := cmd.Flags().GetBool("holdings")
		mfOnly, _ := cmd.Flags().GetBool("mf")

		switch {
		case holdingsOnly:
			holdings, err := agg.HoldingsOnly(ctx)
			if err != nil {
				return err
			}
			printHoldings(holdings)
		case mfOnly:
			mfs, err := agg.MFOnly(ctx)
			if err != nil {
				return err
			}
			printMFHoldings(mfs)
		default:
			p, err := agg.Build(ctx)
			if err != nil {
				return err
			}
			printSummary(p.Summary)
			printHoldings(p.Holdings)
			printMFHoldings(p.MFHoldings)
			printAllocation(p.Allocation)
		}
		return nil
	},
}

func init() {
	portfolioCmd.Flags().Bool("holdings", false, "show stock holdings only")
	portfolioCmd.Flags().Bool("mf", false, "show mutual fund holdings only")
}

func printSummary(s models.PortfolioSummary) {
	fmt.Println("PORTFOLIO SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total Value:     %s\n", utils.FormatINR(s.TotalValue))
	fmt.Printf("Total Invested:  %s\n", utils.FormatINR(s.TotalInvested))
	fmt.Printf("Total P&L:       %s (%s)\n", utils.FormatINR(s.TotalPnL), utils.FormatChange(s.TotalPnLPercent))
	fmt.Printf("Day's P&L:       %s (%s)\n", utils.FormatINR(s.DayPnL), utils.FormatChange(s.DayPnLPercent))
	fmt.Printf("Stocks:          %s across %d holdings\n", utils.FormatINR(s.StocksValue), s.HoldingsCount)
	fmt.Printf("Mutual Funds:    %s across %d schemes\n", utils.FormatINR(s.MFValue), s.MFCount)
	fmt.Println()
}

func printHoldings(holdings []models.Holding) {
	if len(holdings) == 0 {
		fmt.Println("No stock holdings.")
		return
	}

	fmt.Println("STOCK HOLDINGS")
	fmt.Println(utils.Table(
		[]string{"Symbol", "Qty", "Avg", "LTP", "Value", "P&L", "P&L %", "Broker"},
		holdingRows(holdings),
	))
}

func holdingRows(holdings []models.Holding) [][]string {
	rows := make([][]string, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, []string{
			h.Symbol,
			fmt.Sprintf("%.0f", h.Quantity),
			fmt.Sprintf("%.2f", h.AvgPrice),
			fmt.Sprintf("%.2f", h.CurrentPrice),
			utils.FormatINR(h.Value),
			utils.FormatINR(h.PnL),
			utils.FormatChange(h.PnLPercent),
			h.Broker,
		})
	}
	return rows
}

func printMFHoldings(mfs []models.MFHolding) {
	if len(mfs) == 0 {
		fmt.Println("No mutual fund holdings.")
		return
	}

	fmt.Println("MUTUAL FUND HOLDINGS")
	fmt.Println(utils.Table(
		[]string{"Scheme", "Units", "NAV", "Value", "P&L", "P&L %"},
		mfRows(mfs),
	))
}

func mfRows(mfs []models.MFHolding) [][]string {
	rows := make([][]string, 0, len(mfs))
	for _, mf := range mfs {
		rows = append(rows, []string{
			utils.Truncate(mf.SchemeName, 40),
			fmt.Sprintf("%.3f", mf.Units),
			fmt.Sprintf("%.4f", mf.CurrentNAV),
			utils.FormatINR(mf.Value),
			utils.FormatINR(mf.PnL),
			utils.FormatChange(mf.PnLPercent),
		})
	}
	return rows
}

func printAllocation(a models.AllocationBreakdown) {
	fmt.Println("ALLOCATION")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Println("By Asset Type:")
	for name, pctVal := range a.AssetType {
		fmt.Printf("  %-15s %6.2f%%\n", name, pctVal)
	}
	if len(a.MarketCap) > 0 {
		fmt.Println("By Market Cap:")
		for name, pctVal := range a.MarketCap {
			fmt.Printf("  %-15s %6.2f%%\n", name, pctVal)
		}
	}
}

// ── Funds Command ──

var fundsCmd = &cobra.Command{
	Use:   "funds [query]",
	Short: "Search mutual funds by name",
	Long: `Search the AMFI NAV universe by free-text query:

  investez funds "parag parikh flexi"
  investez funds bluechip --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		matches, err := d.amfi.SearchFunds(ctx, strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No matching funds found.")
			return nil
		}

		for _, m := range matches {
			fmt.Printf("  %-70s ₹%.4f  (%s)\n", utils.Truncate(m.SchemeName, 68), m.NAV, m.SchemeCode)
		}
		return nil
	},
}

func init() {
	fundsCmd.Flags().Int("limit", 10, "maximum results")
}
