// Package cli holds the maisonctl subcommand implementations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/maison-parfum/maison/internal/analytics"
	"github.com/maison-parfum/maison/internal/analytics/export"
	"github.com/maison-parfum/maison/internal/storefront"
)

// Report output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ReportOptions defines the flags of the offline report command.
type ReportOptions struct {
	Input             string
	Range             string
	Now               string
	Timezone          string
	Format            string
	LowStockThreshold int
	Stdin             io.Reader
	Stdout            io.Writer
	Stderr            io.Writer
}

// ReportCommand aggregates a JSON snapshot file into a dashboard and prints
// it. It returns the process exit code.
func ReportCommand(ctx context.Context, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	rng, err := analytics.ParseTimeRange(opts.Range)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: invalid range %q (expected today, week, month or year)\n", opts.Range)
		return 1
	}
	loc := time.UTC
	if tz := strings.TrimSpace(opts.Timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: invalid timezone %q\n", tz)
			return 1
		}
	}
	now := time.Now().In(loc)
	if raw := strings.TrimSpace(opts.Now); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: invalid --now %q (expected RFC3339)\n", raw)
			return 1
		}
		now = parsed.In(loc)
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		_, _ = fmt.Fprintf(opts.Stderr, "report: unsupported format %q\n", opts.Format)
		return 1
	}

	storefront.SetWallClockLocation(loc)
	input, err := readSnapshot(opts.Input, opts.Stdin)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}
	if err := ctx.Err(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}

	dash := analytics.Aggregate(input, rng, now, analytics.Options{LowStockThreshold: opts.LowStockThreshold})
	switch format {
	case FormatCSV:
		err = export.WriteDashboardCSV(opts.Stdout, dash)
	default:
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(dash)
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: write %s: %v\n", format, err)
		return 1
	}
	return 0
}

// readSnapshot decodes {orders, users, products, reportOrders, abandonedCarts}
// from path, or from stdin when path is "-" or empty.
func readSnapshot(path string, stdin io.Reader) (analytics.Input, error) {
	var r io.Reader = stdin
	path = strings.TrimSpace(path)
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return analytics.Input{}, fmt.Errorf("open snapshot: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var input analytics.Input
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return analytics.Input{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return input, nil
}
