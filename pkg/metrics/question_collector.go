package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reviewdesk/review-engine/internal/store"
	"go.uber.org/zap"
)

type questionStatsCollector struct {
	store         store.Store
	totalByStatus *prometheus.Desc
}

func newQuestionStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_questions_%s", reviewEngine, name)
	}

	return &questionStatsCollector{
		store: s,
		totalByStatus: prometheus.NewDesc(
			fqName("by_status_total"),
			"Total questions by status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
	}
}

// RegisterQuestionStatsCollector exposes question counts read from the store on every scrape.
func RegisterQuestionStatsCollector(s store.Store) {
	prometheus.MustRegister(newQuestionStatsCollector(s))
}

func (c *questionStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalByStatus
}

// Collect implements Collector.
func (c *questionStatsCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.store.Question().CountByStatus(context.Background())
	if err != nil {
		zap.S().Named("question_collector").Errorf("failed to collect question statistics: %s", err)
		return
	}

	for status, total := range counts {
		ch <- prometheus.MustNewConstMetric(c.totalByStatus, prometheus.GaugeValue, float64(total), string(status))
	}
}
