package calendar

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/diaguru/infra/logger"
)

// MockServer is an in-memory calendar provider exposed over HTTP, for local
// development (calendar mode "mock") and the gateway's own tests. It
// understands the same wire shape
// as HTTPGateway and enforces If-Match-style optimistic concurrency via
// version_tag.
type MockServer struct {
	addr string
	log  logger.Logger
	srv  *http.Server

	mu     sync.Mutex
	seq    int
	events map[string]map[string]eventEnvelope // owner -> id -> event

	requests *prometheus.CounterVec
	failed   prometheus.Counter
}

// NewMockServer creates a mock calendar server listening on addr (use
// "127.0.0.1:0" for an ephemeral port).
func NewMockServer(addr string) *MockServer {
	return NewMockServerWithRegistry(addr, prometheus.DefaultRegisterer)
}

// NewMockServerWithRegistry creates a mock server, registering its metrics
// on reg. A nil reg defaults to the global registerer.
func NewMockServerWithRegistry(addr string, reg prometheus.Registerer) *MockServer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	log := logger.New("calendar-mock-server")

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_mock_requests_total",
		Help: "Total requests handled by the mock calendar server",
	}, []string{"method"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_mock_requests_failed",
		Help: "Failed requests to the mock calendar server",
	})

	if err := reg.Register(requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				requests = exist
			}
		}
	}
	if err := reg.Register(failed); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(prometheus.Counter); ok {
				failed = exist
			}
		}
	}

	return &MockServer{
		addr:     addr,
		log:      log,
		events:   map[string]map[string]eventEnvelope{},
		requests: requests,
		failed:   failed,
	}
}

// Addr returns the listening address once Start has been called.
func (s *MockServer) Addr() string { return s.addr }

func (s *MockServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleCollection)
	mux.HandleFunc("/events/", s.handleItem)
	return mux
}

func (s *MockServer) handleCollection(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	switch r.Method {
	case http.MethodGet:
		s.requests.WithLabelValues("list").Inc()
		from, to := parseRange(r)
		s.mu.Lock()
		var out []eventEnvelope
		for _, ev := range s.events[owner] {
			if ev.End.After(from) && ev.Start.Before(to) {
				out = append(out, ev)
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		s.requests.WithLabelValues("create").Inc()
		var ev eventEnvelope
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			s.failed.Inc()
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.seq++
		ev.ID = "mock-" + strconv.Itoa(s.seq)
		ev.VersionTag = strconv.Itoa(1)
		if s.events[owner] == nil {
			s.events[owner] = map[string]eventEnvelope{}
		}
		s.events[owner][ev.ID] = ev
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, ev)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *MockServer) handleItem(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	id := r.URL.Path[len("/events/"):]

	switch r.Method {
	case http.MethodGet:
		s.requests.WithLabelValues("get").Inc()
		s.mu.Lock()
		ev, ok := s.events[owner][id]
		s.mu.Unlock()
		if !ok {
			s.failed.Inc()
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodDelete:
		s.requests.WithLabelValues("delete").Inc()
		wantTag := r.URL.Query().Get("version_tag")
		s.mu.Lock()
		ev, ok := s.events[owner][id]
		if ok && wantTag != "" && ev.VersionTag != wantTag {
			s.mu.Unlock()
			s.failed.Inc()
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		if ok {
			delete(s.events[owner], id)
		}
		s.mu.Unlock()
		if !ok {
			s.failed.Inc()
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseRange(r *http.Request) (time.Time, time.Time) {
	from, err1 := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	to, err2 := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err1 != nil {
		from = time.Time{}
	}
	if err2 != nil {
		to = time.Now().AddDate(10, 0, 0)
	}
	return from, to
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start runs the mock server until ctx is canceled.
func (s *MockServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown mock calendar server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("mock calendar server listening on %s", s.addr)
	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
