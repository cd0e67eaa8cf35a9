package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyowl_ingest_total",
		Help: "Document ingestions by outcome.",
	}, []string{"status"})

	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyowl_query_total",
		Help: "Chat queries by outcome.",
	}, []string{"status"})

	quizTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyowl_quiz_total",
		Help: "Quiz generations by outcome.",
	}, []string{"status"})

	storageFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyowl_storage_fallback_total",
		Help: "Ingestions that fell back from the vector index to Postgres.",
	})
)
