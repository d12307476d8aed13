// Package main hosts the dualsub CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, applies the global flag
// overrides, and wires the planner, executor and producer adapters for each
// invocation. Pipeline logic lives in the internal packages; commands here
// only translate flags into staging requests and render the results.
package main
