package main

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/foundry/internal/app/build"
	"github.com/alexisbeaulieu97/foundry/internal/engine"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/tui"
)

// observerRelay lets the service be built before the program it reports to.
type observerRelay struct {
	mu     sync.RWMutex
	target engine.Observer
}

func (r *observerRelay) attach(o engine.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = o
}

func (r *observerRelay) current() engine.Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.target
}

func (r *observerRelay) OnTaskStart(projectName, taskID string) {
	if target := r.current(); target != nil {
		target.OnTaskStart(projectName, taskID)
	}
}

func (r *observerRelay) OnTaskFinish(run model.TaskRun) {
	if target := r.current(); target != nil {
		target.OnTaskFinish(run)
	}
}

// runWithProgress runs the build behind the interactive view. Report lines are
// held back until the view closes so they don't fight over the terminal.
func runWithProgress(cmd *cobra.Command, app *application, baselines fingerprint.BaselineStore, targets []string) error {
	var report bytes.Buffer
	relay := &observerRelay{}

	svc, err := app.newService(baselines, relay, &report)
	if err != nil {
		return err
	}

	prepared, err := svc.Prepare(targets, app.projects)
	if err != nil {
		app.log.Error(err, "build configuration failed")
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", build.SummaryFailure, err)
		app.metrics.BuildFinished(false)
		return &exitError{code: 1}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	program := tea.NewProgram(
		tui.NewModel(app.manifest.Name, prepared.Plans),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
	relay.attach(tui.ProgramObserver{Program: program})

	done := make(chan *build.Outcome, 1)
	go func() {
		outcome := svc.Execute(ctx, prepared)
		program.Send(tui.BuildDoneMsg{Success: outcome.Success})
		done <- outcome
	}()

	final, err := program.Run()
	if err != nil {
		app.log.Debugf("progress view stopped: %v", err)
	}
	if m, ok := final.(tui.Model); ok && m.Cancelled() {
		app.log.Warn("build cancelled from the progress view")
		cancel()
	}

	outcome := <-done
	svc.PrintSummary(outcome)
	if _, err := report.WriteTo(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if !outcome.Success {
		return &exitError{code: 1}
	}
	return nil
}
