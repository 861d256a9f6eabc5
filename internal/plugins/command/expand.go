package commandplugin

import (
	"os"
	"path/filepath"
	"strings"
)

// Placeholder names usable in backend arguments.
const (
	VarOutput    = "output"
	VarClasspath = "classpath"
	VarSources   = "sources"
	VarFlags     = "flags"
	VarProject   = "project"
	VarDirectory = "directory"
	VarClasses   = "classes"
)

// Vars maps placeholder names to their values. List values expand to several
// arguments when the placeholder is the whole argument.
type Vars map[string][]string

// expandArgs substitutes ${name} placeholders in args. An argument that is exactly
// one list placeholder becomes one argument per element; anywhere else lists are
// joined, classpath with the OS list separator and the rest with spaces.
func expandArgs(args []string, vars Vars) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if name, ok := wholePlaceholder(arg); ok {
			if values, known := vars[name]; known {
				out = append(out, values...)
				continue
			}
		}
		out = append(out, os.Expand(arg, func(name string) string {
			values, known := vars[name]
			if !known {
				return "${" + name + "}"
			}
			sep := " "
			if name == VarClasspath {
				sep = string(filepath.ListSeparator)
			}
			return strings.Join(values, sep)
		}))
	}
	return out
}

func wholePlaceholder(arg string) (string, bool) {
	if strings.HasPrefix(arg, "${") && strings.HasSuffix(arg, "}") && strings.Count(arg, "$") == 1 {
		return arg[2 : len(arg)-1], true
	}
	return "", false
}
