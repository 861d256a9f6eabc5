package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/foundry/internal/project"
	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

// DefaultManifestName is looked up in the working directory when no path is given.
const DefaultManifestName = "foundry.yaml"

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseManifest loads a manifest from disk, validates it, and returns the resulting model.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, foundryerrors.NewParseError(path, 0, err)
	}
	return ParseManifestBytes(path, data)
}

// ParseManifestBytes decodes and validates manifest content. path is only used in errors.
func ParseManifestBytes(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, foundryerrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateManifest(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}

// BuildProjects builds the project models declared by m. Relative directories are
// resolved against root, the directory holding the manifest.
func (m *Manifest) BuildProjects(root string) []*project.Project {
	projects := make([]*project.Project, 0, len(m.Projects))
	for _, spec := range m.Projects {
		dir := spec.Directory
		if dir == "" {
			dir = spec.Name
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}

		p := project.New(spec.Name, filepath.Clean(dir))
		if spec.BuildDirectory != "" {
			p.BuildDirectory = spec.BuildDirectory
		}
		p.SourceDirectories = copyOrDefault(spec.SourceDirectories, "src/main/java")
		p.TestSourceDirectories = copyOrDefault(spec.TestSourceDirectories, "src/test/java")
		p.Dependencies = append([]string(nil), spec.Dependencies...)
		p.TestDependencies = append([]string(nil), spec.TestDependencies...)
		p.ExcludedDependencies = append([]string(nil), spec.ExcludedDependencies...)
		p.DependsOn = append([]string(nil), spec.DependsOn...)
		p.Variants = project.ExpandVariants(spec.Variants.ProductFlavors, spec.Variants.BuildTypes)
		p.TestDirective = spec.Test

		if len(spec.CompilerArgs) > 0 {
			p.Props().Append(project.PropertyCompilerArgs, spec.CompilerArgs...)
		}
		projects = append(projects, p)
	}
	return projects
}

func copyOrDefault(values []string, fallback string) []string {
	if len(values) == 0 {
		return []string{fallback}
	}
	return append([]string(nil), values...)
}
