// Package logging provides structured logging for tunerd.
//
// It wraps log/slog so every component logs the same way: JSON in
// production, text on a developer terminal, and a fixed set of default
// fields (service, version) on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	scanLog := logger.Component("discovery")
//	scanLog.Info("scan finished", "found", 2, "created", 1)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
