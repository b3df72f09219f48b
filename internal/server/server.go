package server

import (
	"context"
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/models"
	"github.com/practice-sem-2/mtp-service/internal/usecases"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"net/http"
	"time"
)

// MaxPayloadSize caps a single websocket frame.
const MaxPayloadSize = 1 << 20

// Counter reports how many records the store holds.
type Counter interface {
	Count(ctx context.Context) (*models.TableCount, error)
}

type Server struct {
	engine   *usecases.Engine
	counter  Counter
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
	started  time.Time
}

func NewServer(e *usecases.Engine, c Counter, reg *prometheus.Registry, logger logrus.FieldLogger) *Server {
	return &Server{
		engine:   e,
		counter:  c,
		metrics:  NewMetrics(reg),
		gatherer: reg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		started: time.Now(),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

type statusReport struct {
	Time     int64              `json:"time"`
	Uptime   int64              `json:"uptime"`
	Version  api.VersionInfo    `json:"jsonapi"`
	Records  *models.TableCount `json:"records"`
	Database string             `json:"database"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	report := statusReport{
		Time:     now.Unix(),
		Uptime:   int64(now.Sub(s.started).Seconds()),
		Version:  api.ServerVersion(),
		Database: "ok",
	}

	count, err := s.counter.Count(r.Context())
	status := http.StatusOK
	if err != nil {
		s.logger.WithError(err).Warn("can't count records")
		report.Database = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		report.Records = count
	}

	s.writeJSON(w, status, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Debug("can't write response body")
	}
}
