package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	CacheKeyPrefixDashboard = "dashboard:"
)

const (
	DefaultFindingsTopic   = "monitoring_findings"
	DefaultEscalationTopic = "sla_escalations"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultParetoTopN = 5
	MinParetoTopN     = 3
	MaxParetoTopN     = 10
)

const (
	DefaultBurndownDays = 30
	MinBurndownDays     = 7
	MaxBurndownDays     = 90
)

const (
	FallbackCreate   = "create"
	FallbackSuppress = "suppress"
	FallbackError    = "error"
)
