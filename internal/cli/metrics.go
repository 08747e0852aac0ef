package cli

import (
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/estuportal/portalchat/internal/logging"
)

const (
	metricsPath = "/metrics"
	healthPath  = "/healthz"
)

// metricsServer exposes a registry over HTTP for the lifetime of a command.
type metricsServer struct {
	srv   *fasthttp.Server
	ln    net.Listener
	errCh chan error
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s := &metricsServer{
		ln:    ln,
		errCh: make(chan error, 1),
		srv: &fasthttp.Server{
			Name: "portalchat",
			Handler: func(ctx *fasthttp.RequestCtx) {
				switch string(ctx.Path()) {
				case metricsPath:
					metrics(ctx)
				case healthPath:
					ctx.SetContentType("text/plain; charset=utf-8")
					ctx.SetBodyString("ok\n")
				default:
					ctx.Error("not found", fasthttp.StatusNotFound)
				}
			},
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}

	go func() {
		err := s.srv.Serve(ln)
		if err != nil {
			logger := logging.Component("metrics")
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
		s.errCh <- err
	}()
	return s, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *metricsServer) Addr() string { return s.ln.Addr().String() }

// Shutdown stops accepting connections and waits for Serve to return.
func (s *metricsServer) Shutdown() error {
	if err := s.srv.Shutdown(); err != nil {
		return err
	}
	return <-s.errCh
}
