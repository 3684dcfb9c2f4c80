// Package datagen generates training data for likelihood approximation
// networks (LANs) from sequential sampling model simulations.
//
// A run draws parameter sets uniformly within a model's bounds, simulates
// each set, discards degenerate simulations through Filters, and turns every
// accepted simulation into labeled rows: features [theta..., rt, choice]
// and a log-likelihood label from a log-space KDE of the simulated data.
//
// Work is split into n_subruns rounds executed in order. Within a round,
// parameter sets are simulated concurrently on n_cpus workers. Each set
// draws from its own random stream keyed by (seed, index), so output does
// not depend on worker count, scheduling, or the number of rounds.
//
// When saving, every completed round is handed to a Sink; sinks that also
// implement Resumer let an interrupted run continue from its last complete
// round.
package datagen
