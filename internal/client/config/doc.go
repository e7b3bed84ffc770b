// Package config loads runtime configuration for the example-api client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. EXAMPLE_API_CLIENT_* environment variables.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the HTTP API
//	-g string   address:port of the gRPC endpoint ("" disables gRPC)
//	-f string   path of the session database
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "session_path": "/home/me/.config/example-api/session.db",
//	  "timeout": "10s"
//	}
package config
