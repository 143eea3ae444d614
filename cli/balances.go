package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/alecthomas/kong"

	"github.com/ledgerfold/ledgerfold/ledger"
	"github.com/ledgerfold/ledgerfold/loader"
	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/telemetry"
)

type BalancesCmd struct {
	File    FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Account string      `help:"Restrict output to a single account." optional:""`
}

func (cmd *BalancesCmd) Run(ctx *kong.Context, globals *Globals) error {
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

	if cmd.Account != "" {
		account, err := model.ParseAccountName(cmd.Account)
		if err != nil {
			return err
		}
		amounts := ops.SingleAccountBalances(account)
		if len(amounts) == 0 {
			printInfof(ctx.Stdout, "%s has no balance", cmd.Account)
			return nil
		}
		for _, a := range amounts {
			_, _ = fmt.Fprintf(ctx.Stdout, "%-40s %s\n", cmd.Account, a.String())
		}
		return nil
	}

	balances := ops.AccountsLatestBalance()
	names := make([]model.AccountName, 0, len(balances))
	for name, amounts := range balances {
		if len(amounts) > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		for _, a := range balances[name] {
			_, _ = fmt.Fprintf(ctx.Stdout, "%-40s %s\n", name, a.String())
		}
	}

	return nil
}
