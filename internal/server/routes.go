package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func limiter(r rate.Limit, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      r,
		Burst:     burst,
		ExpiresIn: 2 * time.Minute,
	}))
}

func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/v1/health"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/chains", h.Chains)
	v1.GET("/chains/:chainId/tokens", h.Tokens)
	v1.GET("/reserves", h.Reserves)
	v1.GET("/quote", h.Quote)
	v1.GET("/allowance", h.Allowance)
	v1.GET("/swaps/recent", h.RecentSwaps)

	// Endpoints that call out to the aggregator or the price feed.
	upstream := v1.Group("", limiter(rate.Limit(5), 10))
	upstream.GET("/routes", h.Routes)
	upstream.POST("/route/build", h.BuildRoute)
	upstream.POST("/swap/calls", h.SwapCalls)
	upstream.GET("/prices/:chainId/:token", h.Price)

	aigroup := v1.Group("/ai", limiter(rate.Limit(0.2), 2))
	aigroup.POST("/ask", h.AIAsk)

	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
