// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sop_rag"

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

var (
	// HTTP 请求指标
	HTTPRequestsTotal = counter("http", "requests_total",
		"Total number of HTTP requests", "method", "path", "status")
	HTTPRequestDuration = histogram("http", "request_duration_seconds",
		"HTTP request duration in seconds",
		[]float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}, "method", "path")
	HTTPRequestSize = histogram("http", "request_size_bytes",
		"HTTP request size in bytes",
		prometheus.ExponentialBuckets(100, 10, 6), "method", "path")
	HTTPResponseSize = histogram("http", "response_size_bytes",
		"HTTP response size in bytes",
		prometheus.ExponentialBuckets(100, 10, 6), "method", "path")

	// 问答管线指标，outcome: answered/refused/rewritten/failed
	PipelineTotal = counter("pipeline", "runs_total",
		"Total number of answer pipeline runs", "tenant_id", "outcome")
	PipelineDuration = histogram("pipeline", "duration_seconds",
		"End-to-end answer pipeline duration in seconds",
		[]float64{.5, 1, 2.5, 5, 10, 30, 60, 120}, "tenant_id")
	PipelineStageDuration = histogram("pipeline", "stage_duration_seconds",
		"Per-stage answer pipeline duration in seconds",
		[]float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}, "stage")
	ComplianceVerdictTotal = counter("pipeline", "compliance_verdicts_total",
		"Compliance verifier verdicts", "verdict")
	ActiveQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "active_queries",
		Help:      "Current number of in-flight answer pipelines",
	})

	// LLM 指标，type: prompt/completion
	LLMTokensUsed = counter("llm", "tokens_used_total",
		"Total tokens used for LLM calls", "provider", "model", "type")
	LLMCallDuration = histogram("llm", "call_duration_seconds",
		"LLM call duration in seconds",
		[]float64{1, 5, 10, 30, 60, 120}, "provider", "model")
	LLMCallTotal = counter("llm", "call_total",
		"Total number of LLM calls", "provider", "model", "status")

	// 向量检索指标
	MilvusSearchDuration = histogram("milvus", "search_duration_seconds",
		"Milvus search duration in seconds",
		[]float64{.01, .05, .1, .25, .5, 1}, "collection")
	MilvusSearchTotal = counter("milvus", "search_total",
		"Total number of Milvus searches", "collection", "status")

	// 答案缓存指标，result: hit/miss
	AnswerCacheTotal = counter("cache", "answer_total",
		"Answer cache lookups", "result")

	// 审计队列指标
	RedisStreamProcessed = counter("redis", "stream_processed_total",
		"Total number of Redis stream messages processed", "stream", "status")
	RedisStreamDLQDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "stream_dlq_depth",
		Help:      "Current length of the dead letter stream",
	}, []string{"stream"})
)
