package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sisu-network/lib/log"
)

const RequestIdHeader = "X-Request-Id"

type Server struct {
	engine        *gin.Engine
	listenAddress string
}

// NewServer builds the http control surface. The dev routes trigger attestor calls directly and
// are only mounted when devEndpoints is set.
func NewServer(api *ApiHandler, port int, devEndpoints bool) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestId())

	engine.GET("/health", api.Health)
	engine.GET("/event/:uuid", api.GetEvent)
	engine.GET("/events", api.GetEvents)
	engine.GET("/publickey", api.GetPublicKey)
	engine.GET("/vaults", api.GetVaults)
	engine.GET("/force-check/:uuid", api.ForceCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if devEndpoints {
		log.Warn("Dev endpoints are enabled")
		engine.GET("/create-announcement/:uuid", api.CreateAnnouncement)
		engine.GET("/create-attestation/:uuid/:outcome", api.CreateAttestation)
	}

	return &Server{
		engine:        engine,
		listenAddress: fmt.Sprintf("0.0.0.0:%d", port),
	}
}

func requestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIdHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIdHeader, id)

		start := time.Now()
		c.Next()
		log.Verbosef("[%s] %s %s %d %s", id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start))
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.listenAddress, Handler: s.engine}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Running server at ", s.listenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
