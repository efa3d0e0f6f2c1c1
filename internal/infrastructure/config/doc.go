// Package config handles loading and validating Matter hub configuration.
//
// This package manages:
//   - Loading configuration from YAML files, or JSON files with comments
//   - Overriding with environment variables and command-line flags
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The Home Assistant access token should be set via environment variable
//   - The config file should have restricted permissions (0600)
//   - The token is only checked for structure and expiry; Home Assistant
//     itself decides whether it is accepted
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml", func(c *config.Config) {
//	    c.API.Port = 9000
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.Name)
package config
