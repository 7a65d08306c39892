package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IntakeFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_findings_total",
			Help: "Total number of findings processed by intake service (count)",
		},
		[]string{"decision"},
	)

	IntakeProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_processing_duration_ms",
			Help:    "Processing duration for intake service in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"decision"},
	)

	IntakeActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_active_suppression_rules",
			Help: "Number of active intake suppression rules (count)",
		},
	)

	IntakeRuleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_rule_evaluations_total",
			Help: "Total number of intake suppression rule evaluations (count)",
		},
		[]string{"rule_id", "rule_name", "result"},
	)

	ItemsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_items_created_total",
			Help: "Total number of action items created (count)",
		},
		[]string{"category", "severity"},
	)

	ItemsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_items_resolved_total",
			Help: "Total number of action items resolved (count)",
		},
		[]string{"outcome"},
	)

	RuleResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_rule_resolutions_total",
			Help: "Total number of SLA rule lookups by outcome (count)",
		},
		[]string{"result"},
	)

	ActiveSLARules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sla_active_rules",
			Help: "Number of active SLA rules (count)",
		},
	)

	EscalationsSignaledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_signaled_total",
			Help: "Total number of escalation signals raised (count)",
		},
		[]string{"role"},
	)

	EscalationNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalation_notifications_total",
			Help: "Total number of escalation notifications published (count)",
		},
		[]string{"status"},
	)

	EscalationScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "escalation_scan_duration_ms",
			Help:    "Duration of escalation scan cycles in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	EscalationOpenItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "escalation_open_items",
			Help: "Open action items observed by the last escalation scan (count)",
		},
		[]string{"status"},
	)

	DashboardRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total number of dashboard aggregation requests (count)",
		},
		[]string{"endpoint", "cache"},
	)

	DashboardComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_compute_duration_ms",
			Help:    "Duration of dashboard aggregation in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"endpoint"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "operation"},
	)
)

func RegisterOpsMetrics() {
	prometheus.MustRegister(ItemsCreatedTotal)
	prometheus.MustRegister(ItemsResolvedTotal)
	prometheus.MustRegister(RuleResolutionsTotal)
	prometheus.MustRegister(ActiveSLARules)
	prometheus.MustRegister(DashboardRequestsTotal)
	prometheus.MustRegister(DashboardComputeDuration)
	prometheus.MustRegister(RateLimitRequestsTotal)
	registerDatabaseMetricsOnce()
}

func RegisterIntakeMetrics() {
	prometheus.MustRegister(IntakeFindingsTotal)
	prometheus.MustRegister(IntakeProcessingDuration)
	prometheus.MustRegister(IntakeActiveRules)
	prometheus.MustRegister(IntakeRuleEvaluationsTotal)
	registerDatabaseMetricsOnce()
}

func RegisterEscalationMetrics() {
	prometheus.MustRegister(EscalationsSignaledTotal)
	prometheus.MustRegister(EscalationNotificationsTotal)
	prometheus.MustRegister(EscalationScanDuration)
	prometheus.MustRegister(EscalationOpenItems)
	registerDatabaseMetricsOnce()
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func registerDatabaseMetricsOnce() {
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func ObserveIntakeDuration(duration time.Duration, decision string) {
	IntakeProcessingDuration.WithLabelValues(decision).Observe(float64(duration.Milliseconds()))
}

func SetIntakeActiveRules(count int) {
	IntakeActiveRules.Set(float64(count))
}

func IncIntakeRuleEvaluation(ruleID, ruleName, result string) {
	IntakeRuleEvaluationsTotal.WithLabelValues(ruleID, ruleName, result).Inc()
}

func IncItemCreated(category, severity string) {
	ItemsCreatedTotal.WithLabelValues(category, severity).Inc()
}

func IncItemResolved(outcome string) {
	ItemsResolvedTotal.WithLabelValues(outcome).Inc()
}

func IncRuleResolution(result string) {
	RuleResolutionsTotal.WithLabelValues(result).Inc()
}

func SetActiveSLARules(count int) {
	ActiveSLARules.Set(float64(count))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(float64(duration.Milliseconds()))
}

func ObserveEscalationScan(duration time.Duration) {
	EscalationScanDuration.Observe(float64(duration.Milliseconds()))
}

func ObserveDashboardCompute(endpoint string, duration time.Duration) {
	DashboardComputeDuration.WithLabelValues(endpoint).Observe(float64(duration.Milliseconds()))
}

func IncDashboardRequest(endpoint, cache string) {
	DashboardRequestsTotal.WithLabelValues(endpoint, cache).Inc()
}
