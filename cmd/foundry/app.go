package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/foundry/internal/app/build"
	"github.com/alexisbeaulieu97/foundry/internal/config"
	"github.com/alexisbeaulieu97/foundry/internal/engine"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/metrics"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	commandplugin "github.com/alexisbeaulieu97/foundry/internal/plugins/command"
	"github.com/alexisbeaulieu97/foundry/internal/plugins/flavor"
	"github.com/alexisbeaulieu97/foundry/internal/plugins/jvm"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

const tracerName = "github.com/alexisbeaulieu97/foundry/cmd/foundry"

// application is everything one invocation needs once the manifest is loaded.
type application struct {
	settings settings
	root     string
	manifest *config.Manifest
	projects []*project.Project
	log      *logger.Logger

	gatherer *prometheus.Registry
	metrics  *metrics.Metrics
}

func loadApplication(cmd *cobra.Command) (*application, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Level:         s.LogLevel,
		HumanReadable: isTerminal(cmd.ErrOrStderr()),
		Writer:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	path, err := filepath.Abs(s.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	manifest, err := config.ParseManifest(path)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(path)
	reg := prometheus.NewRegistry()
	app := &application{
		settings: s.resolve(manifest, root),
		root:     root,
		manifest: manifest,
		projects: manifest.BuildProjects(root),
		log:      log.With("workspace", manifest.Name),
		gatherer: reg,
		metrics:  metrics.MustNewMetrics(reg),
	}
	app.log.Debugf("loaded %d projects from %s", len(app.projects), path)
	return app, nil
}

func (a *application) plugins() []plugin.Plugin {
	return []plugin.Plugin{
		jvm.New(nil),
		flavor.New(),
		commandplugin.New(a.manifest.Backends, a.log),
	}
}

// newService wires a build service whose report lines and summary go to out.
// Baselines are opened lazily so listing tasks never touches the workspace.
func (a *application) newService(baselines fingerprint.BaselineStore, observer engine.Observer, out io.Writer) (*build.Service, error) {
	return build.NewService(a.plugins(), build.Options{
		Parallelism: a.settings.Parallel,
		Baselines:   baselines,
		Logger:      a.log,
		Metrics:     a.metrics,
		Tracer:      otel.Tracer(tracerName),
		Observer:    observer,
		Output:      out,
	})
}

func (a *application) openBaselines() (fingerprint.BaselineStore, error) {
	store, err := fingerprint.NewFileStore(a.settings.Baseline)
	if err != nil {
		return nil, fmt.Errorf("open baseline store: %w", err)
	}
	return store, nil
}

func (a *application) flushMetrics() {
	if a.settings.MetricsOut == "" {
		return
	}
	if err := metrics.WriteTextfile(a.gatherer, a.settings.MetricsOut); err != nil {
		a.log.Error(err, "failed to write metrics")
		return
	}
	a.log.Debugf("metrics written to %s", a.settings.MetricsOut)
}

func isTerminal(w any) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}
