package health

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"pump-sync/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracker accumulates connector metrics: Prometheus series for scraping
// plus the rolling figures the /health/data endpoint reports.
type Tracker struct {
	mu            sync.Mutex
	totalEntries  int64
	lastEntryTime *time.Time
	lastSyncTime  *time.Time
	entryBuffer   []time.Time // processing times, pruned past 24h

	recordsProduced  *prometheus.CounterVec
	eventsDropped    prometheus.Counter
	batchesProcessed prometheus.Counter
}

func NewTracker(reg prometheus.Registerer) *Tracker {
	t := &Tracker{
		recordsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pumpsync_records_produced_total",
			Help: "Canonical records produced, by record kind.",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpsync_events_dropped_total",
			Help: "Raw events claimed by no handler.",
		}),
		batchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpsync_batches_processed_total",
			Help: "Raw event batches processed.",
		}),
	}
	reg.MustRegister(t.recordsProduced, t.eventsDropped, t.batchesProcessed)
	return t
}

// ObserveBatch records the outcome of one processed batch.
func (t *Tracker) ObserveBatch(records []models.Record, dropped int) {
	t.batchesProcessed.Inc()
	t.eventsDropped.Add(float64(dropped))

	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSyncTime = &now
	for _, record := range records {
		t.recordsProduced.WithLabelValues(string(record.Kind())).Inc()
		t.totalEntries++
		t.entryBuffer = append(t.entryBuffer, now)

		entryTime := record.Base().Time
		if t.lastEntryTime == nil || entryTime.After(*t.lastEntryTime) {
			t.lastEntryTime = &entryTime
		}
	}
}

// Metrics is the JSON shape of /health/data's metrics block.
type Metrics struct {
	TotalEntries       int64   `json:"totalEntries"`
	LastEntryTime      *string `json:"lastEntryTime"`
	EntriesLast24Hours int     `json:"entriesLast24Hours"`
	LastSyncTime       *string `json:"lastSyncTime"`
}

// Snapshot prunes the 24h buffer and returns the current figures.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	kept := t.entryBuffer[:0]
	for _, entry := range t.entryBuffer {
		if entry.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	t.entryBuffer = kept

	m := Metrics{
		TotalEntries:       t.totalEntries,
		EntriesLast24Hours: len(t.entryBuffer),
	}
	if t.lastEntryTime != nil {
		s := t.lastEntryTime.Format(time.RFC3339)
		m.LastEntryTime = &s
	}
	if t.lastSyncTime != nil {
		s := t.lastSyncTime.Format(time.RFC3339)
		m.LastSyncTime = &s
	}
	return m
}

// Server exposes /health, /health/data and /metrics.
type Server struct {
	tracker       *Tracker
	registry      *prometheus.Registry
	connectorName string
	configuration map[string]any
}

func NewServer(tracker *Tracker, registry *prometheus.Registry, connectorName string, configuration map[string]any) *Server {
	return &Server{
		tracker:       tracker,
		registry:      registry,
		connectorName: connectorName,
		configuration: configuration,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/health/data", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"connectorName": s.connectorName,
			"status":        "running",
			"metrics":       s.tracker.Snapshot(),
			"configuration": s.configuration,
		})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run(addr string) error {
	log.Printf("Health server listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write health response: %v", err)
	}
}
