// Package factory instantiates pluggable modules (solvers, cycle log stores,
// metrics sinks) from configuration. A module is selected by a type string
// and configured by a map of raw settings that its factory decodes:
//
//	solver:
//	  type: gonum
//	  conf:
//	    max_nodes: 200
package factory
