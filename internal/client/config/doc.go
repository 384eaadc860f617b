// Package config loads runtime configuration for the caterauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   Identity API base URL
//	-g string   Identity gRPC address (selects the gRPC transport when set)
//	-s string   site URL the session cookies are scoped to
//	-d string   SQLite DSN of the page-scoped store
//	-r string   Redis URL of the cookie backend and event broadcaster
//	-p string   profile; namespaces the Redis keys
//	-i int      session poll interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds. Cookie lifetimes, OTP windows and the store secret
// can only be set here:
//
//	{
//	  "api_base_url": "https://api.catermarket.ng/api/v1",
//	  "poll_interval": "1s",
//	  "access_ttl": "24h",
//	  "refresh_ttl": "168h",
//	  "signup_otp_ttl": "5m",
//	  "reset_otp_ttl": "2m",
//	  "store_secret": "change-me"
//	}
package config
