// Package config holds the tablestorm settings.
//
// Settings come from three layers, each overriding the one before:
//
//  1. Built-in defaults (Default)
//  2. A TOML file (Load)
//  3. TABLESTORM_* environment variables (ApplyEnv)
//
// A file looks like:
//
//	[render]
//	container = "#editor"
//
//	[detect]
//	max_lines = 2000
//	dialects = ["simple", "grid", "pipe"]
//
//	[log]
//	level = "info"
//
//	[lua]
//	init = "~/.config/tablestorm/init.lua"
//	timeout_ms = 5000
//
// A Watcher reloads the file when it changes on disk and publishes the new
// settings on the event bus under topic.ConfigChanged.
package config
