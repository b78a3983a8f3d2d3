// Package config loads application configuration from environment variables
// with an optional YAML overlay.
//
// # Overview
//
// All configuration comes from RADPOINT_* environment variables with sane
// defaults. Secrets (database URL, token secret, S3 keys) are env-only. A
// YAML file named by RADPOINT_CONFIG_FILE can overlay operational knobs:
// log level, request timeout, and the permission cache switch.
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A watcher can apply log level changes from the file without a restart:
//
//	go config.WatchLogLevel(ctx, path, logger)
//
// # Related Packages
//
//   - pkg/observability: Log levels and the runtime level switch
package config
