// Package harness runs seeded simulation scenarios and checks their
// summary statistics.
//
// A scenario is a YAML file naming a model, a parameter vector, a sample
// size and a seed, followed by assertions on the simulated data:
//
//	name: ddm_positive_drift
//	description: Positive drift favors the upper boundary
//	model: ddm
//	theta: {v: 1, a: 1, z: 0.5, t: 0}
//	n_samples: 4000
//	seed: 3
//	assertions:
//	  - type: choice_proportion
//	    choice: 1
//	    expect: 0.8808
//	    tolerance: 0.03
//
// Supported assertion types: choice_proportion, mean_rt, omission_rate,
// count and min_rt. Each checks a value against expect +/- tolerance,
// a [min, max] range, or both.
//
// Scenarios are deterministic: the same file always simulates the same
// data, so a failing scenario is reproducible.
package harness
