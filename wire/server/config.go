package server

import (
	"fmt"
	"strings"
)

// Config holds all configuration parameters for the server.
type Config struct {
	// Endpoint is the address the key-value listener binds to.
	Endpoint string
	// AdminEndpoint is the address of the admin HTTP surface
	// (metrics, stats, merge trigger). Empty disables it.
	AdminEndpoint string
	// DataDir is the directory for table files.
	DataDir string
	// MaxEntries is the buffer entry count that triggers a flush.
	MaxEntries int
	// MergeIntervalSec is the period of the background merge ticker
	// (0 = merges run only when triggered via the admin surface).
	MergeIntervalSec int
	// TimeoutSecond is the per-connection read/write deadline
	// (0 = no deadline).
	TimeoutSecond int

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:      "127.0.0.1:5991",
		AdminEndpoint: "127.0.0.1:5992",
		DataDir:       "data",
		MaxEntries:    1_000_000,
		TimeoutSecond: 5,
		LogLevel:      "info",
	}
}

// String returns a formatted string representation of the configuration.
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Admin Endpoint", c.AdminEndpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Max Buffer Entries", fmt.Sprintf("%d", c.MaxEntries))
	if c.MergeIntervalSec > 0 {
		addField("Merge Interval", fmt.Sprintf("%d sec", c.MergeIntervalSec))
	} else {
		addField("Merge Interval", "disabled")
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
