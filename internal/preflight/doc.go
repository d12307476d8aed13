// Package preflight provides readiness checks for the external binaries,
// services and filesystem paths that dualsub depends on.
//
// The CLI "dualsub doctor" command runs RunAll and CheckSystemDeps and prints
// the results. Each engine check is gated by the engine being enabled.
package preflight
