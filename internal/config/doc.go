// Package config loads, normalizes, and validates dualsub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, canonicalizes language codes, and honours
// environment fallbacks such as AZURE_KEY. The Config type centralizes every
// knob the CLI needs so the planner, executor and producer adapters are built
// from explicit values rather than process-wide defaults.
package config
