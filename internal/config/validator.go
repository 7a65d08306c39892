package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateKafka(cfg.Broker.Kafka); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateEngine(cfg.Engine); err != nil {
		errors = append(errors, err)
	}

	if err := validateIntake(cfg.Intake); err != nil {
		errors = append(errors, err)
	}

	if err := validateEscalation(cfg.Escalation); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "postgres host is required",
		}
	}

	if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Postgres.Port),
		}
	}

	if cfg.RunMigrations && cfg.MigrationsPath == "" {
		return &ValidationError{
			Field:   "database.migrations_path",
			Message: "migrations path is required when run_migrations is enabled",
		}
	}

	return nil
}

func validateEngine(cfg EngineConfig) error {
	if cfg.CalendarFirstYear < 1970 {
		return &ValidationError{
			Field:   "engine.calendar_first_year",
			Message: fmt.Sprintf("calendar first year must be 1970 or later, got %d", cfg.CalendarFirstYear),
		}
	}

	if cfg.CalendarLastYear < cfg.CalendarFirstYear {
		return &ValidationError{
			Field:   "engine.calendar_last_year",
			Message: fmt.Sprintf("calendar last year %d precedes first year %d", cfg.CalendarLastYear, cfg.CalendarFirstYear),
		}
	}

	return nil
}

func validateIntake(cfg IntakeConfig) error {
	if cfg.Reload.IntervalSeconds < 0 {
		return &ValidationError{
			Field:   "intake.reload.interval_seconds",
			Message: "reload interval must be non-negative",
		}
	}

	switch cfg.Fallback.OnError {
	case "", "create", "suppress", "error":
	default:
		return &ValidationError{
			Field:   "intake.fallback.on_error",
			Message: fmt.Sprintf("unknown fallback mode: %s (supported: create, suppress, error)", cfg.Fallback.OnError),
		}
	}

	return nil
}

func validateEscalation(cfg EscalationConfig) error {
	if cfg.ScanIntervalSeconds < 1 {
		return &ValidationError{
			Field:   "escalation.scan_interval_seconds",
			Message: "scan interval must be at least one second",
		}
	}

	if cfg.BatchSize < 1 {
		return &ValidationError{
			Field:   "escalation.batch_size",
			Message: "batch size must be positive",
		}
	}

	return nil
}
