// Package config provides centralized configuration management for stockdash.
// It loads settings from several sources, validates them and exposes a typed
// Config to the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// A .env file in the working directory is loaded into the environment first.
//
// # Environment Variables
//
// All environment variables follow the pattern STOCKDASH_<SECTION>_<KEY>:
//
//	STOCKDASH_SERVER_PORT=8050
//	STOCKDASH_UPLOAD_MAX_BYTES=33554432
//	STOCKDASH_DASHBOARD_VOLUME_LOG_SCALE=true
//	STOCKDASH_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Configuration File
//
// STOCKDASH_CONFIG names an explicit YAML file. Otherwise config.yaml is looked
// up in the working directory and in configs/:
//
//	server:
//	  port: 8050
//	dashboard:
//	  preview_rows: 50
//	  volume_as_bar: true
package config
