// Package config handles loading and validating fire alarm designer configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Circuit limits (rated current, unit loads, device count, spare fraction)
// live in the capacity section. They have no safe defaults and must be set
// for the panel hardware in use.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Capacity.CurrentLimitA)
package config
