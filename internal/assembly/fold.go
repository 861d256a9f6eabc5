// Package assembly builds the ActionInfo handed to backends by folding every
// interested contributor and interceptor over a base value.
package assembly

// Stage transforms one value into its replacement.
type Stage[T any] func(T) T

// Fold applies stages left to right, feeding each the previous result.
func Fold[T any](initial T, stages ...Stage[T]) T {
	acc := initial
	for _, stage := range stages {
		if stage == nil {
			continue
		}
		acc = stage(acc)
	}
	return acc
}
