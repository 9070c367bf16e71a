// Package sweep models the swept parameter space: the ordered space
// itself, the Cartesian enumeration of its combinations, and the
// filter/sampler that reduces the full enumeration to the target
// population carried into model generation.
package sweep
