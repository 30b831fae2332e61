package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"marlin/internal/domain"
	"marlin/pkg/marlin"
)

const version = "0.1.0"

func main() {
	apiURL := flag.String("api", envOr("MARLIN_API", "http://127.0.0.1:8090"), "operator API base URL")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: marlin-cli [-api URL] <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version          Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  status           Show bot state and open position\n")
		fmt.Fprintf(os.Stderr, "  start [mode]     Start the bot (paper|live, default paper)\n")
		fmt.Fprintf(os.Stderr, "  pause            Pause the control loop\n")
		fmt.Fprintf(os.Stderr, "  resume           Resume a paused loop\n")
		fmt.Fprintf(os.Stderr, "  stop             Stop the bot\n")
		fmt.Fprintf(os.Stderr, "  check            Run the risk-limit sweep\n")
		fmt.Fprintf(os.Stderr, "  golive           Show go-live eligibility\n")
		fmt.Fprintf(os.Stderr, "  stats            Show closed-trade statistics\n")
		fmt.Fprintf(os.Stderr, "  eod              Trigger end-of-day flatten and summary\n")
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	client := marlin.NewClient(*apiURL)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	command := flag.Arg(0)
	switch command {
	case "version":
		fmt.Printf("marlin-cli %s\n", version)
	case "start":
		mode := domain.ModePaper
		if flag.NArg() > 1 {
			mode = domain.TradeMode(flag.Arg(1))
		}
		printResult(command)(client.Start(ctx, mode))
	case "pause":
		printResult(command)(client.Pause(ctx))
	case "resume":
		printResult(command)(client.Resume(ctx))
	case "stop":
		printResult(command)(client.Stop(ctx))
	case "eod":
		printResult(command)(client.EndOfDay(ctx))
	case "status":
		showStatus(ctx, client)
	case "check":
		showCheck(ctx, client)
	case "golive":
		showGoLive(ctx, client)
	case "stats":
		showStats(ctx, client)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printResult(command string) func(marlin.CommandResult, error) {
	return func(result marlin.CommandResult, err error) {
		if err != nil {
			fatalf("%s: %v", command, err)
		}
		if !result.OK {
			fatalf("%s failed: %s (state %s)", command, result.Error, result.State.State)
		}
		fmt.Printf("%s ok: state=%s mode=%s\n", command, result.State.State, result.State.Mode)
		if result.State.Halted {
			fmt.Printf("emergency halt: %s\n", result.State.HaltReason)
		}
		if result.Summary != nil {
			fmt.Printf("day %s: %d trades, realized %.2f (%s)\n",
				result.Summary.Date, result.Summary.Trades, result.Summary.Realized, result.Summary.Class)
		}
	}
}

func showStatus(ctx context.Context, client *marlin.Client) {
	status, err := client.Status(ctx)
	if err != nil {
		fatalf("status: %v", err)
	}

	entry := "-"
	if status.EntryPrice != nil {
		entry = fmt.Sprintf("%.2f", *status.EntryPrice)
	}
	halt := "no"
	if status.Halted {
		halt = status.HaltReason
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("State", "Mode", "Halt", "Symbol", "Position", "Entry")
	table.Append(string(status.State), string(status.Mode), halt, status.Symbol,
		fmt.Sprintf("%d", status.Position), entry)
	table.Render()
}

func showCheck(ctx context.Context, client *marlin.Client) {
	report, err := client.Check(ctx)
	if err != nil {
		fatalf("check: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Window", "P&L", "Loss limit hit")
	table.Append("daily", fmt.Sprintf("%.2f", report.DailyPnL), yesNo(report.DailyLossHit))
	table.Append("weekly", fmt.Sprintf("%.2f", report.WeeklyPnL), yesNo(report.WeeklyLossHit))
	table.Append("monthly", fmt.Sprintf("%.2f", report.MonthlyPnL), yesNo(report.MonthlyLossHit))
	table.Render()

	fmt.Printf("trades today: %d\n", report.TradesToday)
	if report.ShouldHalt {
		fmt.Printf("HALT: %s\n", report.HaltReason)
	}
	if report.ShouldCelebrate {
		fmt.Printf("milestone: %s\n", report.CelebrateReason)
	}
}

func showGoLive(ctx context.Context, client *marlin.Client) {
	elig, err := client.GoLive(ctx)
	if err != nil {
		fatalf("golive: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Gate", "Value", "OK")
	table.Append("closed trades", fmt.Sprintf("%d", elig.ClosedTrades), yesNo(elig.HasEnoughTrades))
	table.Append("win rate", fmt.Sprintf("%.1f%%", elig.WinRate*100), yesNo(elig.WinRateOK))
	table.Append("drawdown", fmt.Sprintf("%.2f%%", elig.DrawdownPct*100), yesNo(elig.DrawdownOK))
	table.Render()

	if elig.Eligible {
		fmt.Println("eligible for live trading")
	} else {
		fmt.Println("NOT eligible for live trading")
	}
}

func showStats(ctx context.Context, client *marlin.Client) {
	stats, err := client.Stats(ctx)
	if err != nil {
		fatalf("stats: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Mode", "Trades", "Wins", "Win rate", "Max DD", "Today")
	table.Append(string(stats.Mode),
		fmt.Sprintf("%d", stats.ClosedTrades),
		fmt.Sprintf("%d", stats.WinningTrades),
		fmt.Sprintf("%.1f%%", stats.WinRate*100),
		fmt.Sprintf("%.2f", stats.MaxDrawdown),
		fmt.Sprintf("%d", stats.TradesToday))
	table.Render()
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
