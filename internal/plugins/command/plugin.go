// Package commandplugin exposes the backends declared in the workspace manifest
// as compiler, test runner and documentation capabilities.
package commandplugin

import (
	"github.com/alexisbeaulieu97/foundry/internal/config"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Name is the registered plugin name.
const Name = "command"

type commandPlugin struct {
	compilers []plugin.CompilerBackend
	runners   []plugin.TestRunnerBackend
	docs      []plugin.DocGenerator
}

var (
	_ plugin.Plugin                = (*commandPlugin)(nil)
	_ plugin.CompilerContributor   = (*commandPlugin)(nil)
	_ plugin.TestRunnerContributor = (*commandPlugin)(nil)
	_ plugin.DocContributor        = (*commandPlugin)(nil)
)

// New creates the plugin for the given backend declarations.
func New(backends config.Backends, log *logger.Logger) plugin.Plugin {
	p := &commandPlugin{}
	for _, spec := range backends.Compilers {
		p.compilers = append(p.compilers, NewCompiler(spec, log.With(logger.FieldBackend, spec.Name)))
	}
	for _, spec := range backends.TestRunners {
		p.runners = append(p.runners, NewTestRunner(spec, log.With(logger.FieldBackend, spec.Name)))
	}
	for _, spec := range backends.DocGenerators {
		p.docs = append(p.docs, NewDocGenerator(spec, log.With(logger.FieldBackend, spec.Name)))
	}
	return p
}

func (p *commandPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        Name,
		Version:     "1.0.0",
		Description: "Runs manifest-declared compilers, test runners and doc generators as external commands.",
	}
}

func (p *commandPlugin) Compilers(_ *project.Project) []plugin.CompilerBackend {
	return append([]plugin.CompilerBackend(nil), p.compilers...)
}

func (p *commandPlugin) TestRunners() []plugin.TestRunnerBackend {
	return append([]plugin.TestRunnerBackend(nil), p.runners...)
}

func (p *commandPlugin) DocGenerators() []plugin.DocGenerator {
	return append([]plugin.DocGenerator(nil), p.docs...)
}
