package router

import (
	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/infrastructure/logger"
	"github.com/swimteam/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the gin engine's global middleware
type EngineConfig struct {
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	MaxBodySize    int64
	TrustedProxies []string
	Meter          metric.Meter // nil disables request metrics
}

// NewEngine creates a gin engine with the global middleware chain:
// recovery, request id, tracing, request metrics, request logging,
// security headers, CORS and the body limit.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	engine.Use(logger.Recovery(log), middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(cfg.Tracing)...)
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter))
	}
	engine.Use(logger.GinMiddleware(log), middleware.Secure(), middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine, nil
}
