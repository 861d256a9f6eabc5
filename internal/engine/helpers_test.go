package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// recorder collects the order in which task bodies ran.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) body(name string, result model.TaskResult) catalog.Body {
	return func(context.Context, *project.Project) model.TaskResult {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return result
	}
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type taskSpec struct {
	name      string
	plugin    string
	variant   project.Variant
	runAfter  []string
	runBefore []string
	fail      bool
}

func declare(t *testing.T, rec *recorder, specs ...taskSpec) []*catalog.Task {
	t.Helper()

	c := catalog.New(nil)
	for _, spec := range specs {
		pluginName := spec.plugin
		if pluginName == "" {
			pluginName = "core"
		}
		result := model.Succeeded("")
		if spec.fail {
			result = model.Failed(spec.name + " broke")
		}
		_, err := c.DeclareTask(catalog.Task{
			Plugin:    pluginName,
			Name:      spec.name,
			Variant:   spec.variant,
			RunAfter:  spec.runAfter,
			RunBefore: spec.runBefore,
			Body:      rec.body(spec.variant.TaskName(spec.name), result),
		})
		require.NoError(t, err)
	}
	return c.TasksFor(project.New("p", t.TempDir()), nil)
}

func ids(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}
