package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/connstate/internal/auth"
	"github.com/danmuck/connstate/internal/config"
	"github.com/danmuck/connstate/internal/mediasession"
	"github.com/danmuck/connstate/internal/observability"
	"github.com/danmuck/connstate/internal/protocol/wire"
	"github.com/danmuck/connstate/internal/transport"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve connection states over websocket",
		Long: `Serve the configured media session. Controllers connect to /connect,
metrics are exposed on /metrics and /healthz reports liveness.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			opts, err := cfg.WireOptions()
			if err != nil {
				return err
			}
			session, _, err := cfg.NewSession()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := openListener(cfg)
			if err != nil {
				return err
			}
			logger := observability.ComponentLogger("connstatectl", "http")
			return serve(ctx, ln, newRouter(session, opts, cfg.Authenticator(), cfg.CorsOrigins, logger))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "session config path (default session.toml when present)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address override")
	return cmd
}

// openListener opens cfg.Listen, wrapped in TLS when the config enables it.
func openListener(cfg config.SessionConfig) (net.Listener, error) {
	tlsCfg, err := cfg.ServerTLS()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	return ln, nil
}

func newRouter(session *mediasession.Session, opts wire.Options, validator auth.Validator, corsOrigins []string, logger zerolog.Logger) *gin.Engine {
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ws := transport.NewWebSocketHandler(session, opts, logger.With().Str("session_id", session.ID()).Logger())
	ws.Auth = validator
	ws.Upgrader.CheckOrigin = transport.AllowOrigins(corsOrigins)
	r.GET("/connect", gin.WrapH(ws))
	return r
}

// serve blocks until ctx is done, then drains in-flight handshakes.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger := observability.ComponentLogger("connstatectl", "serve")
	logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}
