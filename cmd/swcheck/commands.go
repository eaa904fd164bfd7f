package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/swcheck/internal/batch"
	"github.com/breeze-rmm/swcheck/internal/privilege"
	"github.com/breeze-rmm/swcheck/internal/registry"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := collectNames(args, namesFile, os.Stdin)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report, err := a.controller(nil).Query(ctx, names)
	if errors.Is(err, batch.ErrNoNames) {
		fmt.Fprintln(cmd.ErrOrStderr(), "No software names given; nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}
	newRenderer(cmd.OutOrStdout()).queryReport(report)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	dry, err := removalMode(a.cfg, dryRun, assumeYes)
	if err != nil {
		return err
	}

	names, err := collectNames(args, namesFile, os.Stdin)
	if err != nil {
		return err
	}

	out := newRenderer(cmd.OutOrStdout())
	if !dry {
		if err := privilege.Require(); err != nil {
			out.warning(err.Error())
		}
	}

	executor, err := a.executor(dry)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report, err := a.controller(executor).Remove(ctx, names)
	if errors.Is(err, batch.ErrNoNames) {
		fmt.Fprintln(cmd.ErrOrStderr(), "No software names given; nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}
	out.removalReport(report, dry)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := registry.Capture(a.store, a.roots)
	if err != nil {
		return fmt.Errorf("capture registry: %w", err)
	}

	if exportOut == "" {
		return snap.Encode(cmd.OutOrStdout())
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := snap.Encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot written to %s\n", exportOut)
	return nil
}
