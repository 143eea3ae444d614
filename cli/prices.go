package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/ledgerfold/ledgerfold/ledger"
	"github.com/ledgerfold/ledgerfold/loader"
	"github.com/ledgerfold/ledgerfold/telemetry"
)

type PricesCmd struct {
	File      FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Commodity string      `help:"Restrict output to prices involving this commodity, either as source or target." optional:""`
}

func (cmd *PricesCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx := context.Background()
	if globals.Telemetry {
		collector := telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)
		defer func() {
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		}()
	}

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}

	ldr := loader.New(loader.WithFollowIncludes())
	tree, err := cmd.File.LoadAST(runCtx, ldr)
	if err != nil {
		renderer := NewErrorRenderer(sourceContent)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))
		return NewCommandError(1)
	}

	ops := ledger.NewOperations()
	ops.Fold(tree)

	var prices []ledger.Price
	if cmd.Commodity != "" {
		prices = ops.CommodityPrices(cmd.Commodity)
	} else {
		prices = ops.AllPrices()
	}

	if len(prices) == 0 {
		printInfof(ctx.Stdout, "no price observations found")
		return nil
	}

	for _, p := range prices {
		_, _ = fmt.Fprintf(ctx.Stdout, "%s price %s %s %s\n", p.Date.Format("2006-01-02"), p.From, p.Rate.String(), p.To)
	}

	return nil
}
