package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/maison-parfum/maison/cmd/maisonctl/cli"
	"github.com/maison-parfum/maison/internal/platform/cache"
	"github.com/maison-parfum/maison/jobs"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var code exitCodeError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "maisonctl",
		Short:         "Operate the Maison Parfum analytics service",
		Long:          `maisonctl aggregates storefront snapshots offline and manages the analytics background jobs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd(), newJobsCmd())
	return root
}

func newReportCmd() *cobra.Command {
	opts := cli.ReportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate a JSON snapshot into a dashboard",
		Long: `report reads {orders, users, products, reportOrders, abandonedCarts} from --input
(or stdin) and prints the dashboard for --range as JSON or CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Stdin = cmd.InOrStdin()
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			if code := cli.ReportCommand(cmd.Context(), opts); code != 0 {
				return exitCodeError(code)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.Input, "input", "i", "-", "snapshot file, - for stdin")
	flags.StringVarP(&opts.Range, "range", "r", "today", "today, week, month or year")
	flags.StringVar(&opts.Now, "now", "", "evaluate as of this RFC3339 instant (default: current time)")
	flags.StringVar(&opts.Timezone, "tz", envOr("STORE_TIMEZONE", "Asia/Kolkata"), "store time zone for range boundaries")
	flags.StringVarP(&opts.Format, "format", "f", cli.FormatJSON, "json or csv")
	flags.IntVar(&opts.LowStockThreshold, "low-stock", 10, "flag variants with fewer units than this (values below 1 use 10)")
	return cmd
}

func newJobsCmd() *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address or redis:// url")

	connect := func() (*cli.JobsCLI, error) {
		opts, err := cache.Options(redisAddr)
		if err != nil {
			return nil, err
		}
		return cli.NewJobsCLI(jobs.RedisClientOpt(opts))
	}

	var ranges []string
	var refresh bool
	trigger := &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"warmup"},
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			info, err := jobsCLI.Trigger(cmd.Context(), args[0], ranges, refresh)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().StringSliceVar(&ranges, "ranges", nil, "ranges to warm (default: all)")
	trigger.Flags().BoolVar(&refresh, "refresh", false, "invalidate cached dashboards first")

	var asJSON bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			result, err := jobsCLI.Stats()
			if err != nil {
				return err
			}
			return cli.RenderStats(cmd.OutOrStdout(), result, asJSON)
		},
	}
	stats.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	cmd.AddCommand(trigger, stats)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
