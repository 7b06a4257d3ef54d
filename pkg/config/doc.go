// Package config provides configuration loading, validation, and hot reload
// for Warden.
//
// Configuration is loaded from a YAML file, defaults are applied, and the
// result is validated before use. Environment variables with the WARDEN_
// prefix override file values for operational knobs.
//
// # Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("warden.yaml")
//	if err != nil {
//	    return err
//	}
//
// # Validation invariants
//
// Validate enforces the cross-references the admission layer relies on:
// chains and roles may only name configured providers, tiers are 1-5, the
// scoring weights sum to 1.0, and the governor's stale-slot timeout is at
// least the breaker's recovery timeout so a reclaimed slot can never race a
// recovering circuit.
//
// # Hot reload
//
// Watcher watches the configuration file with fsnotify and delivers freshly
// validated configurations to a callback. A change that fails validation is
// logged and discarded; the running configuration is never replaced with a
// broken one.
package config
