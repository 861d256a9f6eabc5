// Package flavor wires build variants into the build: per-variant source
// directories, redirected output, a generated BuildConfig class and
// build-type specific compiler flags.
package flavor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/plugins/jvm"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Name is the registered plugin name.
const Name = "flavor"

// TaskGenerateBuildConfig writes the BuildConfig source of one variant.
const TaskGenerateBuildConfig = "generateBuildConfig"

// BuildConfigFile is the name of the generated source file.
const BuildConfigFile = "BuildConfig.java"

var buildConfigTemplate = template.Must(template.New("buildconfig").Parse(`// Generated by foundry. Do not edit.
public final class BuildConfig {
    public static final String PROJECT = "{{.Project}}";
    public static final String VARIANT = "{{.Variant}}";
    public static final String FLAVOR = "{{.Flavor}}";
    public static final String BUILD_TYPE = "{{.BuildType}}";
    public static final boolean DEBUG = {{.Debug}};
}
`))

// Plugin participates in projects that declare variants. Variant output
// directories are recorded per project on Apply and offered to tests.
type Plugin struct {
	mu        sync.RWMutex
	classpath map[string][]model.ClasspathEntry
}

var (
	_ plugin.Acceptor                   = (*Plugin)(nil)
	_ plugin.Applier                    = (*Plugin)(nil)
	_ plugin.SourceDirectoryContributor = (*Plugin)(nil)
	_ plugin.BuildDirectoryInterceptor  = (*Plugin)(nil)
	_ plugin.CompilerFlagContributor    = (*Plugin)(nil)
	_ plugin.CompilerInterceptor        = (*Plugin)(nil)
	_ plugin.ClasspathContributor       = (*Plugin)(nil)
)

// New creates the plugin.
func New() *Plugin {
	return &Plugin{classpath: make(map[string][]model.ClasspathEntry)}
}

func (p *Plugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         Name,
		Version:      "1.0.0",
		Description:  "Expands build types and product flavors into variant tasks and outputs.",
		Dependencies: []string{jvm.Name},
	}
}

// Accept limits the plugin to projects with variants.
func (p *Plugin) Accept(proj *project.Project) bool {
	return len(proj.Variants) > 0
}

// Apply records the variant output directories and declares one
// generateBuildConfig task per variant, ordered before the matching compile.
func (p *Plugin) Apply(ctx *plugin.Context, proj *project.Project) error {
	entries := make([]model.ClasspathEntry, 0, len(proj.Variants))
	for _, v := range proj.Variants {
		entries = append(entries, model.ClasspathEntry{Path: classesDir(proj, v), ID: proj.Name + "-" + v.Name()})
	}
	p.mu.Lock()
	p.classpath[proj.Name] = entries
	p.mu.Unlock()

	_, err := ctx.Catalog.DeclareVariantTasks(catalog.Task{
		Plugin:      Name,
		Name:        TaskGenerateBuildConfig,
		Description: "Generate the BuildConfig class",
		Project:     proj.Name,
		RunBefore:   []string{jvm.TaskCompile},
	}, proj.Variants, func(v project.Variant) catalog.Body {
		return func(_ context.Context, proj *project.Project) model.TaskResult {
			path, err := writeBuildConfig(proj, v)
			if err != nil {
				return model.Failed(err.Error())
			}
			return model.Succeeded(path)
		}
	}, func(v project.Variant) catalog.Incremental {
		return catalog.Incremental{
			Input: func(proj *project.Project) (fingerprint.Fingerprint, error) {
				return fingerprint.Strings(proj.Name, v.ProductFlavor, v.BuildType), nil
			},
			Output: func(proj *project.Project) (fingerprint.Fingerprint, error) {
				return fingerprint.Directories(generatedDir(proj, v))
			},
		}
	})
	return err
}

// SourceDirectories adds src/<flavor>/java, src/<buildType>/java and the generated sources.
func (p *Plugin) SourceDirectories(proj *project.Project, v project.Variant) []string {
	if v.IsDefault() {
		return nil
	}
	var dirs []string
	if v.ProductFlavor != "" {
		dirs = append(dirs, filepath.Join("src", v.ProductFlavor, "java"))
	}
	if v.BuildType != "" {
		dirs = append(dirs, filepath.Join("src", v.BuildType, "java"))
	}
	return append(dirs, generatedDir(proj, v))
}

// InterceptBuildDirectory sends each variant's classes to its own intermediate directory.
func (p *Plugin) InterceptBuildDirectory(proj *project.Project, v project.Variant, dir string) string {
	if v.IsDefault() {
		return dir
	}
	return classesDir(proj, v)
}

// CompilerFlags tags the compilation with its variant for annotation processors.
func (p *Plugin) CompilerFlags(_ *project.Project, v project.Variant) []string {
	if v.IsDefault() {
		return nil
	}
	return []string{"-Afoundry.variant=" + v.Name()}
}

// InterceptCompilerAction keeps debug information for debug builds only.
func (p *Plugin) InterceptCompilerAction(_ *project.Project, v project.Variant, info model.ActionInfo) model.ActionInfo {
	switch v.BuildType {
	case "debug":
		for _, f := range info.Flags {
			if f == "-g" {
				return info
			}
		}
		return info.WithFlags(append(info.Flags, "-g"))
	case "release":
		flags := make([]string, 0, len(info.Flags))
		for _, f := range info.Flags {
			if f != "-g" {
				flags = append(flags, f)
			}
		}
		return info.WithFlags(flags)
	default:
		return info
	}
}

// ClasspathEntries offers every variant's classes to the test classpath.
func (p *Plugin) ClasspathEntries(proj *project.Project, scope plugin.ClasspathScope) []model.ClasspathEntry {
	if scope != plugin.ScopeTest {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.ClasspathEntry(nil), p.classpath[proj.Name]...)
}

func classesDir(proj *project.Project, v project.Variant) string {
	return proj.BuildPath("intermediates", "classes", v.IntermediateDir())
}

func generatedDir(proj *project.Project, v project.Variant) string {
	return proj.BuildPath("generated", "source", "buildConfig", v.IntermediateDir())
}

func writeBuildConfig(proj *project.Project, v project.Variant) (string, error) {
	var buf bytes.Buffer
	err := buildConfigTemplate.Execute(&buf, map[string]any{
		"Project":   proj.Name,
		"Variant":   v.Name(),
		"Flavor":    v.ProductFlavor,
		"BuildType": v.BuildType,
		"Debug":     v.BuildType == "debug",
	})
	if err != nil {
		return "", fmt.Errorf("render build config: %w", err)
	}

	dir := generatedDir(proj, v)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, BuildConfigFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
