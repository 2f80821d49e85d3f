// Package cmd implements the command-line interface for the vrdb
// key-value store. It provides a hierarchical command structure with
// operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the vrdb server
//   - kv: Client commands (put, get, an interactive shell and a perf harness)
//   - sst: Offline inspector for table files (list, get, set)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See vrdb -help for a list of all commands.
package cmd
