package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry exposing c together with the Go
// runtime and process collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	Register(reg, c)
	return reg
}

// Register exports every counter of c on reg.  The values are read
// from the collector at scrape time.
func Register(reg prometheus.Registerer, c *Collector) {
	f := promauto.With(reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "icbd_sessions_active",
		Help: "Sessions accepted and not yet released",
	}, func() float64 { return float64(c.ActiveConnections()) })

	counters := []struct {
		name, help string
		get        func() int64
	}{
		{"icbd_sessions_total", "Total sessions accepted", c.TotalConnections},
		{"icbd_received_bytes_total", "Bytes read from clients", c.TotalBytesIn},
		{"icbd_sent_bytes_total", "Bytes written to clients", c.TotalBytesOut},
		{"icbd_packets_total", "Packets reassembled and delivered", c.PacketsFramed},
		{"icbd_protocol_violations_total", "Sessions dropped for invalid framing", c.ProtocolViolations},
		{"icbd_accept_pauses_total", "Listener pauses caused by descriptor exhaustion", c.AcceptPauses},
		{"icbd_deferred_releases_total", "Session releases deferred until name resolution finished", c.DeferredReleases},
		{"icbd_log_records_dropped_total", "Chat log records dropped on a full queue", c.LogRecordsDropped},
		{"icbd_errors_total", "Errors recorded", c.ErrorCount},
	}
	for _, m := range counters {
		get := m.get
		f.NewCounterFunc(prometheus.CounterOpts{
			Name: m.name,
			Help: m.help,
		}, func() float64 { return float64(get()) })
	}
}

// Server serves /metrics on a listener that is bound up front, so the
// socket exists before privileges are dropped.
type Server struct {
	ln  net.Listener
	srv *http.Server
}

// Listen binds addr and prepares the HTTP server for reg.
func Listen(addr string, reg *prometheus.Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{
		ln: ln,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close releases the socket of a server that was never served.
func (s *Server) Close() error { return s.ln.Close() }

// Serve blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx) //nolint:errcheck
	}()
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
