package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented configuration template written by the init
// command. Values match the compiled-in defaults so the file documents them.
const sampleConfig = `# Exchange Broker Configuration File
#
# All options can be overridden with environment variables:
#   EXCHANGE_<SECTION>_<KEY> (use underscores for nested keys)
# Example: EXCHANGE_LOGGING_LEVEL=DEBUG

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text, json
  format: text
  # Destination: stdout, stderr, or a file path
  output: stdout

# Maximum time to wait for graceful shutdown
shutdown_timeout: 30s

server:
  # Listen address for the broker endpoints
  host: 0.0.0.0
  port: 8000
  read_timeout: 10s
  write_timeout: 10s
  idle_timeout: 60s
  # Largest accepted data upload, e.g. "64Mi" or "100MB"
  max_payload_size: 64Mi

housekeeper:
  # How often the live session table is logged
  sweep_interval: 10s

metrics:
  # Prometheus metrics are opt-in
  enabled: false
  port: 9090
`

// InitConfig creates a sample configuration file at the default location.
//
// Returns the path of the created file. Fails if the file already exists
// unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
//
// Fails if the file already exists unless force is true. Parent directories
// are created as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
