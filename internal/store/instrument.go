package store

import (
	"context"
	"time"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds the collectors used by Instrument.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers store collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grocery_store_operations_total",
				Help: "Total number of item store operations",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grocery_store_operation_duration_seconds",
				Help:    "Histogram of item store operation durations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.duration)
	}
	return m
}

type instrumented struct {
	next    Store
	metrics *Metrics
	logger  *zap.Logger
}

// Instrument wraps s so every call is counted, timed and failures are logged.
func Instrument(s Store, m *Metrics, logger *zap.Logger) Store {
	if m == nil {
		m = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{next: s, metrics: m, logger: logger}
}

func (s *instrumented) observe(op string, start time.Time, err error, fields ...zap.Field) {
	s.metrics.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
		s.logger.Error("store operation failed",
			append(fields, zap.String("op", op), zap.Error(err))...)
	} else {
		s.logger.Debug("store operation", append(fields, zap.String("op", op))...)
	}
	s.metrics.ops.WithLabelValues(op, result).Inc()
}

func (s *instrumented) All(ctx context.Context) ([]model.GroceryItem, error) {
	start := time.Now()
	items, err := s.next.All(ctx)
	s.observe("all", start, err, zap.Int("count", len(items)))
	return items, err
}

func (s *instrumented) Insert(ctx context.Context, item model.GroceryItem) error {
	start := time.Now()
	err := s.next.Insert(ctx, item)
	s.observe("insert", start, err, zap.String("item_id", item.ID))
	return err
}

func (s *instrumented) Update(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error) {
	start := time.Now()
	it, err := s.next.Update(ctx, id, p)
	s.observe("update", start, err, zap.String("item_id", id))
	return it, err
}

func (s *instrumented) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err, zap.String("item_id", id))
	return err
}

func (s *instrumented) Watch(fn func(Change)) (cancel func()) { return s.next.Watch(fn) }

func (s *instrumented) Close() error { return s.next.Close() }
