package backtest

import (
	"fmt"
	"strings"
	"time"
)

// Reporter generates text reports from backtest results
type Reporter struct{}

// NewReporter creates a new reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// GenerateReport generates a formatted text report
func (r *Reporter) GenerateReport(result *Result) string {
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════\n")
	sb.WriteString("            POSITION BACKTEST REPORT\n")
	sb.WriteString("═══════════════════════════════════════════════════════\n\n")

	sb.WriteString(fmt.Sprintf("Pair:                 %s/%s\n", result.Config.TokenA, result.Config.TokenB))
	if result.Config.PoolID != "" {
		sb.WriteString(fmt.Sprintf("Pool:                 %s\n", result.Config.PoolID))
	}
	sb.WriteString(fmt.Sprintf("Strategy:             %s (%s)\n", result.Config.Strategy.Name, result.Config.Strategy.Type))
	sb.WriteString(fmt.Sprintf("Window:               %s → %s\n",
		result.Config.StartTime.Format("2006-01-02 15:04"),
		result.Config.EndTime.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("Data Source:          %s (%s quality, %d points)\n\n",
		result.DataSource, result.DataQuality, len(result.Prices)))

	sb.WriteString("📊 PERFORMANCE\n")
	sb.WriteString("───────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("Initial Capital:      $%.2f\n", result.InitialCapital))
	sb.WriteString(fmt.Sprintf("Final Value:          $%.2f\n", result.FinalValue))
	sb.WriteString(fmt.Sprintf("Total Return:         $%.2f (%.2f%%)\n", result.TotalReturn, result.TotalReturnPercent))
	sb.WriteString(fmt.Sprintf("Max Drawdown:         %.2f%%\n", result.MaxDrawdownPercent))
	if result.SharpeRatio != 0 {
		sb.WriteString(fmt.Sprintf("Sharpe Ratio:         %.2f\n", result.SharpeRatio))
	}
	sb.WriteString("\n")

	sb.WriteString("💰 ECONOMICS\n")
	sb.WriteString("───────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("Fees Earned:          $%.2f\n", result.TotalFees))
	sb.WriteString(fmt.Sprintf("Impermanent Loss:     $%.2f\n", result.ImpermanentLoss))
	sb.WriteString(fmt.Sprintf("Gas Spent:            $%.2f\n\n", result.TotalGas))

	sb.WriteString("📈 RANGE ACTIVITY\n")
	sb.WriteString("───────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("Time In Range:        %.2f%%\n", result.TimeInRangePercent))
	sb.WriteString(fmt.Sprintf("Rebalances:           %d\n", result.RebalanceCount()))
	sb.WriteString(fmt.Sprintf("Out-of-Range Periods: %d\n", len(result.OutOfRangePeriods)))
	for i, p := range result.OutOfRangePeriods {
		status := "returned"
		if !p.DidReturn {
			status = "did not return"
		}
		sb.WriteString(fmt.Sprintf("  #%d %s → %s (%s, exit $%.4f, %s)\n",
			i+1,
			time.UnixMilli(p.StartTimestamp).UTC().Format("01-02 15:04"),
			time.UnixMilli(p.EndTimestamp).UTC().Format("01-02 15:04"),
			formatDuration(p.Duration),
			p.ExitPrice,
			status))
	}
	sb.WriteString("\n")

	if len(result.Events) > 0 {
		sb.WriteString("📋 RECENT EVENTS (Last 10)\n")
		sb.WriteString("───────────────────────────────────────────────────────\n")
		start := len(result.Events) - 10
		if start < 0 {
			start = 0
		}
		for i := start; i < len(result.Events); i++ {
			e := result.Events[i]
			line := fmt.Sprintf("%s %-18s price=$%.4f range=[%.4f, %.4f]",
				time.UnixMilli(e.Timestamp).UTC().Format("01-02 15:04"),
				e.Type, e.Price, e.NewRange.Lower, e.NewRange.Upper)
			if e.Reason != "" {
				line += fmt.Sprintf(" reason=%s", e.Reason)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		sb.WriteString("⚠️  WARNINGS\n")
		sb.WriteString("───────────────────────────────────────────────────────\n")
		for _, w := range result.Warnings {
			sb.WriteString("• " + w + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("═══════════════════════════════════════════════════════\n")

	return sb.String()
}

// GenerateSummary generates a short one-line summary
func (r *Reporter) GenerateSummary(result *Result) string {
	return fmt.Sprintf(
		"Return: %.2f%% | Fees: $%.2f | IL: $%.2f | In Range: %.1f%% | Rebalances: %d | Max DD: %.2f%%",
		result.TotalReturnPercent,
		result.TotalFees,
		result.ImpermanentLoss,
		result.TimeInRangePercent,
		result.RebalanceCount(),
		result.MaxDrawdownPercent,
	)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd%dh", days, hours)
}
