package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPluginNotFound is returned when the requested plugin is not registered.
type ErrPluginNotFound struct {
	Name string
}

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("plugin '%s' not found in registry", e.Name)
}

// ErrCircularDependency is returned when plugin dependencies form a cycle.
type ErrCircularDependency struct {
	Cycle []string
}

func (e ErrCircularDependency) Error() string {
	if len(e.Cycle) == 0 {
		return "circular plugin dependency detected"
	}
	sequence := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("circular plugin dependency detected: %s", strings.Join(sequence, " -> "))
}

// ErrMissingDependency is returned when a declared dependency has not been registered.
type ErrMissingDependency struct {
	Plugin     string
	Dependency string
}

func (e ErrMissingDependency) Error() string {
	return fmt.Sprintf(
		"plugin '%s' depends on '%s' which is not registered\nHint: register the dependency before initializing plugins",
		e.Plugin,
		e.Dependency,
	)
}

// ErrSelfDependency is returned when a plugin lists itself as a dependency.
type ErrSelfDependency struct {
	Plugin string
}

func (e *ErrSelfDependency) Error() string {
	return fmt.Sprintf("plugin '%s' cannot depend on itself", e.Plugin)
}

// ErrDuplicateDependency is returned when a dependency is listed twice.
type ErrDuplicateDependency struct {
	Plugin     string
	Dependency string
}

func (e *ErrDuplicateDependency) Error() string {
	return fmt.Sprintf("plugin '%s' lists dependency '%s' more than once", e.Plugin, e.Dependency)
}

// ErrRegistryFrozen is returned when registering after startup completed.
var ErrRegistryFrozen = errors.New("plugin registry is frozen")
