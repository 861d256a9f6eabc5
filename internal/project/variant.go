package project

import (
	"path/filepath"
	"unicode"
)

// Variant is one point on the build-type x product-flavor axis.
// The zero Variant is the unvariant default.
type Variant struct {
	ProductFlavor string `yaml:"flavor,omitempty"`
	BuildType     string `yaml:"build_type,omitempty"`
}

// IsDefault reports whether v is the unvariant default.
func (v Variant) IsDefault() bool {
	return v.ProductFlavor == "" && v.BuildType == ""
}

// Name renders the variant in lower camel case, e.g. "freeDebug".
func (v Variant) Name() string {
	if v.ProductFlavor == "" {
		return v.BuildType
	}
	return v.ProductFlavor + capitalize(v.BuildType)
}

// String implements fmt.Stringer.
func (v Variant) String() string {
	if v.IsDefault() {
		return "default"
	}
	return v.Name()
}

// TaskName qualifies base with the variant, e.g. "compile" -> "compileFreeDebug".
func (v Variant) TaskName(base string) string {
	if v.IsDefault() {
		return base
	}
	return base + capitalize(v.Name())
}

// IntermediateDir is the relative directory used for per-variant outputs.
func (v Variant) IntermediateDir() string {
	parts := make([]string, 0, 2)
	if v.ProductFlavor != "" {
		parts = append(parts, v.ProductFlavor)
	}
	if v.BuildType != "" {
		parts = append(parts, v.BuildType)
	}
	return filepath.Join(parts...)
}

// ExpandVariants returns every flavor x build type combination in declaration order.
// With neither axis declared it returns nil.
func ExpandVariants(flavors, buildTypes []string) []Variant {
	if len(flavors) == 0 && len(buildTypes) == 0 {
		return nil
	}
	if len(flavors) == 0 {
		flavors = []string{""}
	}
	if len(buildTypes) == 0 {
		buildTypes = []string{""}
	}

	variants := make([]Variant, 0, len(flavors)*len(buildTypes))
	for _, flavor := range flavors {
		for _, buildType := range buildTypes {
			variants = append(variants, Variant{ProductFlavor: flavor, BuildType: buildType})
		}
	}
	return variants
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
