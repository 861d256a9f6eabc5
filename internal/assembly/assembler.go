package assembly

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/foundry/internal/model"
	"github.com/alexisbeaulieu97/foundry/internal/plugin"
	"github.com/alexisbeaulieu97/foundry/internal/project"
)

// Request selects what an Assemble call builds.
type Request struct {
	Variant project.Variant
	Scope   plugin.ClasspathScope
	// Suffixes filters source files; empty keeps every file.
	Suffixes []string
	// OutputDirectory is the directory before build-directory interceptors run.
	// Empty defaults to the classes directory of the scope.
	OutputDirectory string
}

// Assembler folds registered contributors and interceptors into ActionInfo values.
// It holds no state of its own, so equal inputs always give equal results.
type Assembler struct {
	registry *plugin.Registry
	resolver ClasspathResolver
}

// NewAssembler creates an Assembler over registry. A nil resolver means StaticResolver.
func NewAssembler(registry *plugin.Registry, resolver ClasspathResolver) *Assembler {
	if resolver == nil {
		resolver = StaticResolver{}
	}
	return &Assembler{registry: registry, resolver: resolver}
}

// Classpath resolves the scope's classpath, drops excluded entries, then lets
// contributors append and interceptors rewrite it.
func (a *Assembler) Classpath(p *project.Project, scope plugin.ClasspathScope) ([]model.ClasspathEntry, error) {
	resolved, err := a.resolver.Resolve(p, scope)
	if err != nil {
		return nil, fmt.Errorf("resolve %s classpath of %s: %w", scope, p.Name, err)
	}

	entries := make([]model.ClasspathEntry, 0, len(resolved))
	for _, entry := range resolved {
		if !excluded(p, entry) {
			entries = append(entries, entry)
		}
	}

	for _, c := range plugin.ContributorsFor[plugin.ClasspathContributor](a.registry, p) {
		entries = append(entries, c.ClasspathEntries(p, scope)...)
	}

	var stages []Stage[[]model.ClasspathEntry]
	for _, i := range plugin.ContributorsFor[plugin.ClasspathInterceptor](a.registry, p) {
		i := i
		stages = append(stages, func(cp []model.ClasspathEntry) []model.ClasspathEntry {
			return i.InterceptClasspath(p, scope, append([]model.ClasspathEntry(nil), cp...))
		})
	}
	return Fold(entries, stages...), nil
}

func excluded(p *project.Project, entry model.ClasspathEntry) bool {
	for _, prefix := range p.ExcludedDependencies {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(entry.ID, prefix) || strings.HasPrefix(filepath.Base(entry.Path), prefix) {
			return true
		}
	}
	return false
}

// SourceDirectories returns the scope's source directories after contributors and,
// for main sources, interceptors. Paths are absolute and not checked for existence.
func (a *Assembler) SourceDirectories(p *project.Project, v project.Variant, scope plugin.ClasspathScope) []string {
	var dirs []string
	if scope == plugin.ScopeTest {
		for _, dir := range p.TestSourceDirectories {
			dirs = append(dirs, p.Path(dir))
		}
		for _, c := range plugin.ContributorsFor[plugin.TestSourceDirectoryContributor](a.registry, p) {
			dirs = append(dirs, absolute(p, c.TestSourceDirectories(p, v))...)
		}
		return dedupe(dirs)
	}

	for _, dir := range p.SourceDirectories {
		dirs = append(dirs, p.Path(dir))
	}
	for _, c := range plugin.ContributorsFor[plugin.SourceDirectoryContributor](a.registry, p) {
		dirs = append(dirs, absolute(p, c.SourceDirectories(p, v))...)
	}

	var stages []Stage[[]string]
	for _, i := range plugin.ContributorsFor[plugin.SourceDirectoriesInterceptor](a.registry, p) {
		i := i
		stages = append(stages, func(in []string) []string {
			return absolute(p, i.InterceptSourceDirectories(p, v, append([]string(nil), in...)))
		})
	}
	return dedupe(Fold(dirs, stages...))
}

// OutputDirectory folds build-directory interceptors over base.
func (a *Assembler) OutputDirectory(p *project.Project, v project.Variant, base string) string {
	var stages []Stage[string]
	for _, i := range plugin.ContributorsFor[plugin.BuildDirectoryInterceptor](a.registry, p) {
		i := i
		stages = append(stages, func(dir string) string {
			return i.InterceptBuildDirectory(p, v, dir)
		})
	}
	return Fold(base, stages...)
}

// Flags collects the compilerArgs property followed by every flag contributor.
func (a *Assembler) Flags(p *project.Project, v project.Variant) []string {
	flags := p.Props().Strings(project.PropertyCompilerArgs)
	for _, c := range plugin.ContributorsFor[plugin.CompilerFlagContributor](a.registry, p) {
		flags = append(flags, c.CompilerFlags(p, v)...)
	}
	return flags
}

// Assemble builds the ActionInfo for req. Stages run in a fixed order:
// classpath, source directories, source files, output directory, flags, then
// compiler interceptors in registration order.
func (a *Assembler) Assemble(p *project.Project, req Request) (model.ActionInfo, error) {
	scope := req.Scope
	if scope == "" {
		scope = plugin.ScopeCompile
	}

	classpath, err := a.Classpath(p, scope)
	if err != nil {
		return model.ActionInfo{}, err
	}

	files, err := SourceFiles(a.SourceDirectories(p, req.Variant, scope), req.Suffixes)
	if err != nil {
		return model.ActionInfo{}, err
	}

	out := req.OutputDirectory
	if out == "" {
		if scope == plugin.ScopeTest {
			out = p.TestClassesDir()
		} else {
			out = p.ClassesDir()
		}
	}

	base := model.ActionInfo{Directory: p.Directory}.
		WithClasspath(classpath).
		WithSourceFiles(files).
		WithSuffixes(req.Suffixes).
		WithOutputDirectory(a.OutputDirectory(p, req.Variant, out)).
		WithFlags(a.Flags(p, req.Variant))

	var stages []Stage[model.ActionInfo]
	for _, i := range plugin.ContributorsFor[plugin.CompilerInterceptor](a.registry, p) {
		i := i
		stages = append(stages, func(info model.ActionInfo) model.ActionInfo {
			return i.InterceptCompilerAction(p, req.Variant, info.Clone())
		})
	}
	return Fold(base, stages...), nil
}

// SourceFiles lists regular files under dirs whose name ends with one of suffixes,
// sorted. Missing directories are skipped.
func SourceFiles(dirs []string, suffixes []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat source directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.Type().IsRegular() && matchesSuffix(path, suffixes) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk source directory %s: %w", dir, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func matchesSuffix(path string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}
	for _, suffix := range suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func absolute(p *project.Project, dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, p.Path(dir))
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
