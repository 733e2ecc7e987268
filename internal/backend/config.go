package backend

import (
	"fmt"
	"strings"

	"timebill/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %s)", appConfig.DataBackend, validTypes())
	}

	return Config{
		Type:         backendType,
		SQLiteDSN:    appConfig.SQLiteDSN,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %s)", c.Type, validTypes())
	}
	if c.Type == SQLiteBackend && c.SQLiteDSN == "" {
		return fmt.Errorf("SQLite DSN is required for sqlite backend")
	}
	// AMQP is optional
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}

func validTypes() string {
	names := make([]string, 0, 2)
	for _, bt := range GetBackendTypes() {
		names = append(names, bt.String())
	}
	return strings.Join(names, ", ")
}
