package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
)

var errNoTargets = errors.New("no targets given and the manifest declares no default_targets")

func runBuild(cmd *cobra.Command, args []string) error {
	app, err := loadApplication(cmd)
	if err != nil {
		return err
	}
	defer app.flushMetrics()

	targets := args
	if len(targets) == 0 {
		targets = app.manifest.Settings.DefaultTargets
	}
	if len(targets) == 0 {
		return errNoTargets
	}

	if app.settings.DryRun {
		return runDryRun(cmd, app, targets)
	}

	baselines, err := app.openBaselines()
	if err != nil {
		return err
	}

	if app.settings.TUI {
		return runWithProgress(cmd, app, baselines, targets)
	}

	svc, err := app.newService(baselines, nil, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if code := svc.RunTargets(cmd.Context(), targets, app.projects); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func runDryRun(cmd *cobra.Command, app *application, targets []string) error {
	svc, err := app.newService(fingerprint.NewMemoryStore(), nil, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	prepared, err := svc.Prepare(targets, app.projects)
	if err != nil {
		return fmt.Errorf("plan build: %w", err)
	}
	svc.DryRun(prepared)
	fmt.Fprintf(cmd.OutOrStdout(), "%d tasks in %d projects\n", prepared.TaskCount(), len(prepared.Projects))
	return nil
}
