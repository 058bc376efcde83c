package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/globalmed/clinic-catalog/pkg/client"
	"github.com/globalmed/clinic-catalog/pkg/logging"
	"github.com/globalmed/clinic-catalog/pkg/metrics"
	"github.com/globalmed/clinic-catalog/pkg/ratelimit"
)

const (
	proxyPrefix     = "/api"
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the caching API proxy",
	Long: `Serves the clinic API through the cached, rate-limited client:

  /health   liveness
  /ready    readiness (Redis ping)
  /metrics  Prometheus metrics
  /api/*    forwarded to base_url`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rdb, err := connectRedis(ctx, cfg, true)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	apiClient, err := newAPIClient(cfg, rdb)
	if err != nil {
		return err
	}
	defer apiClient.Close()

	var ready redis.UniversalClient
	if rdb != nil {
		ready = rdb
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(ready, apiClient, logging.NewLogger("proxy")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("base_url", cfg.BaseURL).
		Str("user_agent", cfg.UserAgent).
		Msg("Starting clinic catalog proxy")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down proxy")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newRouter wires the proxy routes. rdb may be nil when Redis is disabled.
func newRouter(rdb redis.UniversalClient, apiClient *client.Client, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(rdb))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get(proxyPrefix+"/*", apiProxyHandler(apiClient, log))

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports 503 while Redis does not answer a ping.
func readyHandler(rdb redis.UniversalClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// hopHeaders are not copied from the upstream response.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Content-Length":    true,
	"Upgrade":           true,
}

// apiProxyHandler forwards GET /api/<path> to <base_url>/<path>.
func apiProxyHandler(apiClient *client.Client, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// /api/doctors -> /doctors
		endpoint := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		if locale := acceptLanguage(r.Header.Get("Accept-Language")); locale != "" {
			ctx = client.WithLocale(ctx, locale)
		}

		resp, err := apiClient.Get(ctx, endpoint, r.URL.Query())
		if err != nil {
			writeProxyError(w, err)
			log.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Proxy request failed")
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			if hopHeaders[key] {
				continue
			}
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to write response")
		}
	}
}

// writeProxyError maps client errors onto proxy responses: a local or
// upstream throttle is 429, everything else 502.
func writeProxyError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorClass == client.ErrorClassRateLimit {
		w.Header().Set("Retry-After", strconv.Itoa(int(ratelimit.DefaultWindow.Seconds())))
		http.Error(w, fmt.Sprintf("API request throttled: %v", err), http.StatusTooManyRequests)
		return
	}
	http.Error(w, fmt.Sprintf("API request failed: %v", err), http.StatusBadGateway)
}

// acceptLanguage returns the primary language tag of an Accept-Language
// header ("uz-UZ,ru;q=0.8" -> "uz").
func acceptLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	lang, _, _ := strings.Cut(strings.TrimSpace(first), "-")
	return strings.ToLower(lang)
}
