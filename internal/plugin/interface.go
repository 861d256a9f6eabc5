// Package plugin defines the plugin contract, the capability interfaces plugins
// implement, and the registry that resolves them per project.
package plugin

import (
	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Plugin is the contract every plugin satisfies. Everything else a plugin offers is
// expressed through optional interfaces detected by type assertion.
type Plugin interface {
	PluginMetadata() Metadata
}

// Acceptor gates whether a plugin participates in a project at all.
// Plugins that do not implement it accept every project.
type Acceptor interface {
	Accept(p *project.Project) bool
}

// TaskContributor declares the plugin's static tasks once, when the registry is initialized.
type TaskContributor interface {
	DeclareTasks(ctx *Context) error
}

// Applier declares per-project tasks, such as variant expansions, at configuration time.
// It runs once per accepting project before any task of that project executes.
type Applier interface {
	Apply(ctx *Context, p *project.Project) error
}

// Context is handed to plugins while they configure themselves.
type Context struct {
	Registry *Registry
	Catalog  *catalog.Catalog
	Logger   *logger.Logger
}

// NameOf returns the plugin's registered name.
func NameOf(p Plugin) string {
	if p == nil {
		return ""
	}
	return p.PluginMetadata().Name
}

// Accepts reports whether p participates in proj.
func Accepts(p Plugin, proj *project.Project) bool {
	if acceptor, ok := p.(Acceptor); ok {
		return acceptor.Accept(proj)
	}
	return true
}
