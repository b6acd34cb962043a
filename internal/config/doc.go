// Package config handles configuration loading for unwind-gateway.
//
// # Sources
//
// The binary picks one source:
//
//  1. The file named by --config, or by UNWIND_CONFIG
//  2. Otherwise the SUPABASE_* environment variables (see FromEnv)
//
// Either way a .env file in the working directory is loaded first. Variables
// already present in the environment win over .env values.
//
// # Configuration File
//
// The format follows the extension: .yaml, .yml, or .toml. Values can
// reference environment variables:
//
//	auth:
//	  jwt_secret: "${SUPABASE_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  shutdown_timeout: "10s"
//
//	database:
//	  url: ""                   # replaces host/port/name/user/password/sslmode
//	  host: "db.example.supabase.co"
//	  port: 5432
//	  name: "postgres"
//	  user: "postgres"
//	  password: "${SUPABASE_DB_PASSWORD}"
//	  sslmode: "require"
//	  min_conns: 1
//	  max_conns: 10
//	  query_timeout: "5s"
//	  connect_timeout: "10s"
//
//	auth:
//	  jwt_secret: "${SUPABASE_JWT_SECRET}"
//
//	tools:
//	  call_timeout: "30s"
//
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "text"            # text or json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Durations use time.ParseDuration syntax and must be positive.
//
// # Validation
//
// Load and FromEnv both validate before returning. The JWT secret is always
// required. Without a database URL the host and password are required.
// Pool sizes must satisfy 0 <= min_conns <= max_conns and max_conns >= 1.
//
// # Usage
//
//	cfg, err := config.Load("/etc/unwind/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	acc := store.New(cfg.PoolConfig(), logger)
package config
