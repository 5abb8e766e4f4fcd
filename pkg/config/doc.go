// Package config loads a debugit logger setup from YAML.
//
// Example:
//
//	level: info
//	debug: true
//	sinks:
//	  console: {enabled: true, stderr_level: warn}
//	  file: {path: logs/app.log, max_size: 1048576}
//	relay:
//	  mode: client
//	  url: wss://collector.example:3001/
//	  password: s3cret
//	  reconnect_interval: 5000
//
// [Config.Build] turns a loaded file into a running *debugit.Logger.
package config
