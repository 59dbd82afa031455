package comparison

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// RenderTable writes the ranked comparison as an aligned text table.
func RenderTable(w io.Writer, results []StrategyComparison) {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Strategy", "Return", "Fees", "IL", "Gas", "In Range", "Rebalances", "Max DD", "Sharpe")

	for i, r := range results {
		res := r.Result
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.StrategyName,
			fmt.Sprintf("%.2f%%", res.TotalReturnPercent),
			fmt.Sprintf("$%.2f", res.TotalFees),
			fmt.Sprintf("$%.2f", res.ImpermanentLoss),
			fmt.Sprintf("$%.2f", res.TotalGas),
			fmt.Sprintf("%.1f%%", res.TimeInRangePercent),
			fmt.Sprintf("%d", res.RebalanceCount()),
			fmt.Sprintf("%.2f%%", res.MaxDrawdownPercent),
			fmt.Sprintf("%.2f", res.SharpeRatio),
		)
	}

	table.Render()
}
