package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extraction metrics
	EntitiesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_entities_extracted_total",
			Help: "Number of entities extracted, by entity type",
		},
		[]string{"entity_type"},
	)

	RelationshipsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_relationships_extracted_total",
			Help: "Number of relationships extracted, by relation type",
		},
		[]string{"relation_type"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kg_extraction_duration_seconds",
			Help: "Time spent in recognizer strategies",
		},
		[]string{"strategy"},
	)

	// Pipeline metrics
	InteractionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_interactions_processed_total",
			Help: "Total chat interactions processed by the pipeline",
		},
		[]string{"status"},
	)

	NegationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kg_negations_applied_total",
		Help: "Relationship negations detected and applied",
	})

	// Community metrics
	CommunityRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "kg_community_rebuild_duration_seconds",
		Help: "Time spent rebuilding the community graph",
	})

	CommunityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kg_communities_total",
		Help: "Communities in the current snapshot",
	})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_cache_hits_total",
			Help: "Number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kg_cache_misses_total",
			Help: "Number of cache misses",
		},
		[]string{"cache_type"},
	)
)
