// Package compiler turns CUE model definitions into model.Config values.
//
// A definition file declares models under the top-level "model" struct:
//
//	model: my_ddm: {
//		simulator: "ddm_flexbound"
//		boundary:  "angle"
//		params: {
//			v:     {low: -3, high: 3, default: 0}
//			a:     {low: 0.3, high: 2.5, default: 1}
//			z:     {low: 0.1, high: 0.9, default: 0.5}
//			t:     {low: 0, high: 2, default: 0.001}
//			theta: {low: -0.1, high: 1.3, default: 0}
//		}
//		hddm_include: ["z", "theta"]
//	}
//
// Parameter order follows declaration order. Two-choice simulators default
// to choices [-1, 1]; race and LCA models take "nchoices" and default to
// choices 0..n-1. Boundary parameters are taken from the boundary shape.
//
// CompileModel only decodes; Validate reports structural problems with
// stable E2xx codes.
package compiler
