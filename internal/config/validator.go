package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern      = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?$`)
	projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	variantNamePattern = regexp.MustCompile(`^[a-z][A-Za-z0-9]*$`)
	suffixPattern      = regexp.MustCompile(`^\.[A-Za-z0-9_]+$`)
)

// validatorInstance configures and returns the shared validator used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("project_name", func(fl validator.FieldLevel) bool {
			return projectNamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("variant_name", func(fl validator.FieldLevel) bool {
			return variantNamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("suffix", func(fl validator.FieldLevel) bool {
			return suffixPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateManifest performs schema and cross-field validation.
func ValidateManifest(m *Manifest) error {
	if m == nil {
		return foundryerrors.NewValidationError("manifest", "manifest is nil", nil)
	}

	if err := validatorInstance().Struct(m); err != nil {
		return convertValidationError(err)
	}

	projectIndex := make(map[string]int, len(m.Projects))
	for i, p := range m.Projects {
		if _, exists := projectIndex[p.Name]; exists {
			return foundryerrors.NewValidationError(fieldForProject(i, "name"), fmt.Sprintf("duplicate project name %q", p.Name), nil)
		}
		projectIndex[p.Name] = i
	}

	for i, p := range m.Projects {
		for _, dep := range p.DependsOn {
			if _, ok := projectIndex[dep]; !ok {
				return foundryerrors.NewValidationError(fieldForProject(i, "depends_on"), fmt.Sprintf("references unknown project %q", dep), nil)
			}
		}
	}

	if cycle := detectCycle(m.Projects); len(cycle) > 0 {
		return foundryerrors.NewValidationError("projects", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	if err := uniqueBackendNames(m.Backends); err != nil {
		return err
	}
	return nil
}

func uniqueBackendNames(b Backends) error {
	seen := make(map[string]string)
	check := func(kind, name string, index int) error {
		if prev, ok := seen[name]; ok {
			return foundryerrors.NewValidationError(
				fmt.Sprintf("backends.%s[%d].name", kind, index),
				fmt.Sprintf("backend name %q already used by %s", name, prev),
				nil,
			)
		}
		seen[name] = kind
		return nil
	}

	for i, c := range b.Compilers {
		if err := check("compilers", c.Name, i); err != nil {
			return err
		}
	}
	for i, r := range b.TestRunners {
		if err := check("test_runners", r.Name, i); err != nil {
			return err
		}
	}
	for i, d := range b.DocGenerators {
		if err := check("doc_generators", d.Name, i); err != nil {
			return err
		}
	}
	return nil
}

// convertValidationError normalizes validator errors into foundry validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return foundryerrors.NewValidationError(field, msg, err)
	}

	return foundryerrors.NewValidationError("manifest", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForProject(index int, field string) string {
	return fmt.Sprintf("projects[%d].%s", index, field)
}
