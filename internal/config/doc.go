// Package config loads vents configuration from TOML or YAML files.
//
// A configuration file sets the default debounce window for delayed
// events, logging, the Lua script timeout, and the config watcher's own
// debounce window:
//
//	delay = "250ms"
//
//	[log]
//	level = "info"
//	file = "/var/log/vents.log"
//
//	[script]
//	timeout = "5s"
//
//	[watch]
//	debounce = "100ms"
//
// Durations are written as Go duration strings in both formats. Missing
// keys keep the values from Default.
package config
