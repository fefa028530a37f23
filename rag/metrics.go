package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "edurag",
		Subsystem: "index",
		Name:      "documents_indexed_total",
		Help:      "Number of documents successfully added to the index.",
	})

	chunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "edurag",
		Subsystem: "index",
		Name:      "chunks_indexed_total",
		Help:      "Number of chunks embedded and stored.",
	})

	embeddingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "edurag",
		Subsystem: "index",
		Name:      "embedding_duration_seconds",
		Help:      "Wall time spent embedding a document's chunks.",
		Buckets:   prometheus.DefBuckets,
	})

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edurag",
		Subsystem: "retrieval",
		Name:      "searches_total",
		Help:      "Searches against the index, labelled by outcome.",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "edurag",
		Subsystem: "retrieval",
		Name:      "search_duration_seconds",
		Help:      "End-to-end search latency including query embedding.",
		Buckets:   prometheus.DefBuckets,
	})

	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edurag",
		Subsystem: "qa",
		Name:      "answers_total",
		Help:      "Answered questions, labelled by whether context was found.",
	}, []string{"has_context"})
)
