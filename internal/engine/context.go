package engine

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/trace"

	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/logger"
	"github.com/alexisbeaulieu97/foundry/internal/metrics"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Observer is told about task transitions as they happen. Calls come from the
// executor's scheduling goroutine and worker goroutines, so implementations must
// be safe for concurrent use.
type Observer interface {
	OnTaskStart(projectName, taskID string)
	OnTaskFinish(run model.TaskRun)
}

// ExecutionContext contains runtime state shared across executor workers.
type ExecutionContext struct {
	Project *project.Project
	// Parallelism caps concurrently running task bodies. Values below 1 mean 1.
	Parallelism int
	Baselines   fingerprint.BaselineStore
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	Observer    Observer
	// Report receives one "<task>\t<status>\t<ms>" line per terminal task.
	Report  io.Writer
	Context context.Context
}
