package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc returns the JSON body served at /status.
type StatusFunc func() any

// Admin is the optional HTTP status surface for a node or central.
type Admin struct {
	ID       string
	Addr     string
	Appeared time.Time

	router *gin.Engine
	status StatusFunc
}

func NewAdmin(id, addr string, corsOrigins []string, status StatusFunc) *Admin {
	RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(ComponentLogger(id)))
	r.Use(RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		router:   r,
		status:   status,
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Router() *gin.Engine {
	return a.router
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.Appeared).String(),
			"service": a.ID,
		})
	})
	a.router.GET("/status", func(c *gin.Context) {
		if a.status == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no status source"})
			return
		}
		c.JSON(http.StatusOK, a.status())
	})
	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve blocks until ctx is done or the listener fails.
func (a *Admin) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Infof("observability.Admin.Serve listen=%s id=%s", a.Addr, a.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warnf("observability.Admin.Serve shutdown err=%v", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
