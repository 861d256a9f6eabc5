package model

// ClasspathEntry is one resolved element of a compile or test classpath.
type ClasspathEntry struct {
	// Path is the file or directory placed on the classpath.
	Path string
	// ID identifies the dependency the entry came from, e.g. a coordinate or project name.
	ID string
}

// ActionInfo describes one invocation handed to a backend.
// It is a value; the With helpers return modified copies and never alias slices.
type ActionInfo struct {
	Directory       string
	Classpath       []ClasspathEntry
	SourceFiles     []string
	Suffixes        []string
	OutputDirectory string
	Flags           []string
}

// ClasspathPaths returns the classpath as plain paths.
func (a ActionInfo) ClasspathPaths() []string {
	paths := make([]string, 0, len(a.Classpath))
	for _, entry := range a.Classpath {
		paths = append(paths, entry.Path)
	}
	return paths
}

// WithClasspath returns a copy using classpath.
func (a ActionInfo) WithClasspath(classpath []ClasspathEntry) ActionInfo {
	a.Classpath = append([]ClasspathEntry(nil), classpath...)
	return a
}

// WithSourceFiles returns a copy using files.
func (a ActionInfo) WithSourceFiles(files []string) ActionInfo {
	a.SourceFiles = append([]string(nil), files...)
	return a
}

// WithOutputDirectory returns a copy writing into dir.
func (a ActionInfo) WithOutputDirectory(dir string) ActionInfo {
	a.OutputDirectory = dir
	return a
}

// WithFlags returns a copy using flags.
func (a ActionInfo) WithFlags(flags []string) ActionInfo {
	a.Flags = append([]string(nil), flags...)
	return a
}

// WithSuffixes returns a copy restricted to suffixes.
func (a ActionInfo) WithSuffixes(suffixes []string) ActionInfo {
	a.Suffixes = append([]string(nil), suffixes...)
	return a
}

// Clone returns a deep copy.
func (a ActionInfo) Clone() ActionInfo {
	a.Classpath = append([]ClasspathEntry(nil), a.Classpath...)
	a.SourceFiles = append([]string(nil), a.SourceFiles...)
	a.Suffixes = append([]string(nil), a.Suffixes...)
	a.Flags = append([]string(nil), a.Flags...)
	return a
}
