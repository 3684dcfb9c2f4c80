// Package simulator draws response times and choices from sequential
// sampling models by Euler-Maruyama integration of the evidence process.
//
// Two-choice kernels (ddm_flexbound, ornstein_uhlenbeck, full_ddm) evolve a
// single evidence variable between symmetric boundaries ±b(t) and report
// choices -1 and +1. Accumulator kernels (race, lca) evolve one
// non-negative accumulator per option against a common boundary b(t) and
// report choices 0..n-1. Samples that do not cross before MaxT carry
// OmissionRT.
//
// Every call is deterministic given Options.Seed and Options.Stream.
package simulator
