package plugin

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z-.]+)?$`)
	pluginNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// Metadata describes plugin identity and the plugins it builds on.
type Metadata struct {
	Name        string `validate:"required,plugin_name"`
	Version     string `validate:"required,semver"`
	Description string
	// Dependencies name plugins whose tasks must be declared before this plugin's.
	Dependencies []string `validate:"dive,plugin_name"`
}

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("plugin_name", func(fl validator.FieldLevel) bool {
			return pluginNamePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})
	return validateInst
}

// Validate ensures metadata is well-formed.
func (m Metadata) Validate() error {
	if err := validatorInstance().Struct(m); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		if dep == m.Name {
			return &ErrSelfDependency{Plugin: m.Name}
		}
		if _, dup := seen[dep]; dup {
			return &ErrDuplicateDependency{Plugin: m.Name, Dependency: dep}
		}
		seen[dep] = struct{}{}
	}
	return nil
}
