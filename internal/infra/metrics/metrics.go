package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BotRepliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_replies_total",
		Help: "Отправленные ответы по источнику (command, extension, manual)",
	}, []string{"source"})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_events_total",
		Help: "Входящие события по области",
	}, []string{"scope"})
	GateRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_gate_rejections_total",
		Help: "События, отброшенные гейтом",
	}, []string{"gate"})
	ExtensionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_extension_failures_total",
		Help: "Ошибки обработчиков расширений",
	}, []string{"extension"})
	DispatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_dispatch_seconds",
		Help:    "Время обработки одного события",
		Buckets: prometheus.DefBuckets,
	})
	DailyReplies = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_daily_replies",
		Help: "Ответы за текущие сутки",
	})
	SnapshotWriteErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_snapshot_write_errors_total",
		Help: "Неудачные записи снимков реестров",
	}, []string{"key"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BotRepliesTotal,
		BotSendErrors,
		EventsTotal,
		GateRejections,
		ExtensionFailures,
		DispatchSeconds,
		DailyReplies,
		SnapshotWriteErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}
