package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/foundry/internal/config"
	"github.com/alexisbeaulieu97/foundry/internal/model"
)

const workspaceManifest = `version: "1.0"
name: demo
settings:
  parallel: 2
  default_targets: [compile]
projects:
  - name: util
  - name: app
    depends_on: [util]
`

func writeWorkspace(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultManifestName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestBuildRunsDefaultTargets(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, workspaceManifest)
	stdout, _, err := execute(t, "--config", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "jvm:compile\tran\t"), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "jvm:compile\tran\t"), lines[1])
	require.True(t, strings.HasPrefix(lines[2], "BUILD SUCCESSFUL"), lines[2])

	require.FileExists(t, filepath.Join(filepath.Dir(path), ".foundry", "baselines.yaml"))
}

func TestBuildSkipsUpToDateTasksOnSecondRun(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, workspaceManifest)
	baseline := filepath.Join(t.TempDir(), "state.yaml")

	_, _, err := execute(t, "--config", path, "--baseline", baseline, "compile")
	require.NoError(t, err)

	stdout, _, err := execute(t, "--config", path, "--baseline", baseline, "compile")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(stdout, "jvm:compile\tup-to-date\t"))
	require.Contains(t, stdout, "BUILD SUCCESSFUL")
}

func TestBuildUnknownTargetFails(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, workspaceManifest)
	stdout, _, err := execute(t, "--config", path, "deploy")
	require.Error(t, err)
	require.Equal(t, 1, exitCode(err))
	require.Contains(t, stdout, "BUILD FAILED")
	require.Contains(t, stdout, "deploy")
}

func TestBuildWithoutTargetsFails(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, `version: "1.0"
name: bare
projects:
  - name: util
`)
	_, _, err := execute(t, "--config", path)
	require.ErrorIs(t, err, errNoTargets)
}

func TestBuildInvalidManifestFails(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, `version: "1.0"
name: broken
projects: []
`)
	_, _, err := execute(t, "--config", path, "compile")
	require.Error(t, err)
	require.Contains(t, err.Error(), "projects")
}

func TestDryRunPrintsPlansWithoutRunning(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, workspaceManifest)
	stdout, _, err := execute(t, "--config", path, "--dry-run", "test")
	require.NoError(t, err)

	require.Contains(t, stdout, "Project util: jvm:compile -> jvm:compileTest -> jvm:test")
	require.Contains(t, stdout, "Project app:")
	require.Contains(t, stdout, "6 tasks in 2 projects")
	require.NoFileExists(t, filepath.Join(filepath.Dir(path), ".foundry", "baselines.yaml"))
}

func TestTasksCommandListsPluginTasks(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, workspaceManifest)
	stdout, _, err := execute(t, "tasks", "--config", path)
	require.NoError(t, err)

	require.Contains(t, stdout, "PLUGIN")
	for _, name := range []string{"compile", "compileTest", "test", "clean", "doc", "assemble", "build"} {
		require.Regexp(t, `(?m)^jvm\s+`+name+`\s`, stdout)
	}
}

func TestTasksCommandJSON(t *testing.T) {
	t.Parallel()

	path := writeWorkspace(t, `version: "1.0"
name: variants
projects:
  - name: app
    variants:
      build_types: [debug, release]
`)
	stdout, _, err := execute(t, "tasks", "--json", "--config", path)
	require.NoError(t, err)

	var payload tasksJSONPayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	require.Equal(t, "variants", payload.Workspace)

	var names []string
	for _, group := range payload.Plugins {
		for _, task := range group.Tasks {
			names = append(names, group.Plugin+":"+task.Name)
		}
	}
	require.Equal(t, len(names), payload.Count)
	require.Contains(t, names, "jvm:compileDebug")
	require.Contains(t, names, "jvm:compileRelease")
	require.Contains(t, names, "flavor:generateBuildConfigDebug")
}

func TestSettingsPrecedence(t *testing.T) {
	t.Setenv("FOUNDRY_PARALLEL", "3")
	t.Setenv("FOUNDRY_LOG_LEVEL", "debug")

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--baseline", "custom.yaml"}))

	s, err := loadSettings(root)
	require.NoError(t, err)
	require.Equal(t, 3, s.Parallel)
	require.Equal(t, "debug", s.LogLevel)
	require.Equal(t, config.DefaultManifestName, s.ConfigPath)

	manifest := &config.Manifest{Settings: config.Settings{Parallel: 8, Baseline: "ignored.yaml"}}
	resolved := s.resolve(manifest, "/work")
	require.Equal(t, 3, resolved.Parallel)
	require.Equal(t, filepath.Join("/work", "custom.yaml"), resolved.Baseline)

	require.NoError(t, root.ParseFlags([]string{"--parallel", "5"}))
	s, err = loadSettings(root)
	require.NoError(t, err)
	require.Equal(t, 5, s.Parallel)
}

func TestSettingsFallBackToManifest(t *testing.T) {
	t.Parallel()

	manifest := &config.Manifest{Settings: config.Settings{Parallel: 8, Baseline: "state/b.yaml"}}
	resolved := settings{}.resolve(manifest, "/work")
	require.Equal(t, 8, resolved.Parallel)
	require.Equal(t, filepath.Join("/work", "state", "b.yaml"), resolved.Baseline)

	resolved = settings{}.resolve(&config.Manifest{}, "/work")
	require.Positive(t, resolved.Parallel)
	require.Equal(t, filepath.Join("/work", defaultBaseline), resolved.Baseline)
}

type recordingObserver struct {
	started  []string
	finished []string
}

func (r *recordingObserver) OnTaskStart(_, taskID string) {
	r.started = append(r.started, taskID)
}

func (r *recordingObserver) OnTaskFinish(run model.TaskRun) {
	r.finished = append(r.finished, run.TaskID)
}

func TestObserverRelayForwardsOnceAttached(t *testing.T) {
	t.Parallel()

	relay := &observerRelay{}
	relay.OnTaskStart("app", "jvm:compile")

	target := &recordingObserver{}
	relay.attach(target)
	relay.OnTaskStart("app", "jvm:test")
	relay.OnTaskFinish(model.TaskRun{TaskID: "jvm:test"})

	require.Equal(t, []string{"jvm:test"}, target.started)
	require.Equal(t, []string{"jvm:test"}, target.finished)
}
