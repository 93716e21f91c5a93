// Package app wires the configured calendar gateway, store, advisor,
// notification and metrics transports into a scheduler.Orchestrator and
// serves it over HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/diaguru/api"
	"github.com/kilianp07/diaguru/config"
	"github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/calendar"
	coremetrics "github.com/kilianp07/diaguru/core/metrics"
	coremon "github.com/kilianp07/diaguru/core/monitoring"
	"github.com/kilianp07/diaguru/core/notify"
	"github.com/kilianp07/diaguru/core/scheduler"
	corestore "github.com/kilianp07/diaguru/core/store"
	infraadvisor "github.com/kilianp07/diaguru/infra/advisor"
	infracalendar "github.com/kilianp07/diaguru/infra/calendar"
	"github.com/kilianp07/diaguru/infra/logger"
	"github.com/kilianp07/diaguru/infra/metrics"
	inframonitoring "github.com/kilianp07/diaguru/infra/monitoring"
	"github.com/kilianp07/diaguru/infra/mqtt"
	"github.com/kilianp07/diaguru/infra/store"
)

// Service wires the scheduling orchestrator to its HTTP transport and
// background telemetry server.
type Service struct {
	orch *scheduler.Orchestrator
	log  logger.Logger

	httpSrv     *http.Server
	telemetry   *http.Server
	closers     []func() error
	mockAddress string
	mockSrv     *infracalendar.MockServer
}

// New builds a Service from the root configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	mon, err := inframonitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry monitor: %w", err)
	}
	coremon.Init(mon)

	svc := &Service{log: log}

	cal, mockSrv, err := buildCalendar(cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("calendar gateway: %w", err)
	}
	svc.mockSrv = mockSrv
	svc.mockAddress = cfg.Calendar.MockAddress

	st, closeStore, err := buildStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if closeStore != nil {
		svc.closers = append(svc.closers, closeStore)
	}

	adv := buildAdvisor(cfg.Advisor)

	pub, closePub, err := buildNotify(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("notify publisher: %w", err)
	}
	if closePub != nil {
		svc.closers = append(svc.closers, closePub)
	}

	sink, err := buildMetrics(cfg.Telemetry, cfg.Influx)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc.orch = scheduler.New(cfg.Scheduler, cal, st,
		scheduler.WithAdvisor(adv),
		scheduler.WithNotify(pub),
		scheduler.WithMetrics(sink),
		scheduler.WithMonitor(mon),
		scheduler.WithLogger(log),
	)

	authenticator := api.StaticTokenAuthenticator(cfg.HTTP.Tokens)
	handler := api.NewRouter(svc.orch, authenticator, log)
	svc.httpSrv = &http.Server{Addr: cfg.HTTP.Address, Handler: handler}

	if cfg.Telemetry.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		svc.telemetry = &http.Server{Addr: cfg.Telemetry.Address, Handler: mux}
	}

	return svc, nil
}

func buildCalendar(cfg config.CalendarConfig) (calendar.Gateway, *infracalendar.MockServer, error) {
	switch cfg.Mode {
	case "", "mock":
		mockSrv := infracalendar.NewMockServer(cfg.MockAddress)
		gw := infracalendar.NewHTTPGateway(infracalendar.Config{BaseURL: mockBaseURL(cfg.MockAddress)})
		return gw, mockSrv, nil
	case "http":
		return infracalendar.NewHTTPGateway(infracalendar.Config{
			BaseURL:      cfg.BaseURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown calendar mode %q", cfg.Mode)
	}
}

// mockBaseURL turns a bind address like ":8090" into a loopback URL the
// HTTPGateway client can dial once the mock server starts listening.
func mockBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func buildStore(cfg config.StoreConfig) (corestore.Store, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return corestore.NewMemoryStore(), nil, nil
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildAdvisor(cfg config.AdvisorConfig) advisor.Advisor {
	if cfg.BaseURL == "" {
		return advisor.Baseline{}
	}
	return infraadvisor.NewHTTPClient(infraadvisor.Config{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	})
}

func buildNotify(cfg config.MQTTConfig) (notify.Publisher, func() error, error) {
	if cfg.Broker == "" {
		return notify.NopPublisher{}, nil, nil
	}
	client, err := mqtt.NewPahoClient(mqtt.Config{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID,
		Username:   cfg.Username,
		Password:   cfg.Password,
		UseTLS:     cfg.UseTLS,
		ClientCert: cfg.ClientCert,
		ClientKey:  cfg.ClientKey,
		CABundle:   cfg.CABundle,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

func buildMetrics(telem config.TelemetryConfig, influx config.InfluxConfig) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if telem.Enabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if influx.Enabled {
		sinks = append(sinks, metrics.NewInfluxSink(influx.URL, influx.Token, influx.Org, influx.Bucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return coremetrics.NewMultiSink(sinks...), nil
	}
}

// Run starts the HTTP server(s) and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.mockSrv != nil {
		go func() {
			if err := s.mockSrv.Start(ctx); err != nil {
				s.log.Errorf("mock calendar server: %v", err)
			}
		}()
	}

	errs := make(chan error, 2)
	go func() {
		s.log.Infof("scheduling API listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
			return
		}
		errs <- nil
	}()

	if s.telemetry != nil {
		go func() {
			s.log.Infof("telemetry listening on %s", s.telemetry.Addr)
			if err := s.telemetry.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("telemetry server: %w", err)
				return
			}
			errs <- nil
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

// Close releases held resources: the HTTP servers, the store and the
// notification publisher.
func (s *Service) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	coremon.Flush(2 * time.Second)
	return firstErr
}
