// Package model defines sequential-sampling-model configuration records and
// the registry of known models.
//
// A Config names the simulator kernel that generates trajectories, the
// ordered parameter vector with its uniform sampling bounds, and the
// boundary shape applied to the decision threshold. Built-in models are
// registered at package init; additional models may be compiled from CUE
// definitions (see internal/compiler) and registered at runtime.
//
// This package imports nothing internal except boundary, keeping model
// records the foundation layer for simulator, datagen and store.
package model
