package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/quote", h.Quote)
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/balances/:account", h.Balances)

	// Swap execution endpoints
	v1.POST("/swaps/exact-input", h.SwapExactInput)
	v1.POST("/swaps/exact-output", h.SwapExactOutput)

	// Intent parsing with rate limiting; the LLM fallback is slow and paid
	intentGroup := v1.Group("/intent")
	intentGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.5), // 1 request every 2 seconds
		Burst:     3,
		ExpiresIn: 2 * time.Minute,
	})))
	intentGroup.POST("/parse", h.IntentParse)

	// Operational switch CRUD endpoints
	switchGroup := v1.Group("/switches")
	switchGroup.GET("", h.SwitchesList)
	switchGroup.POST("", h.SwitchesUpsert)
	switchGroup.GET("/:key", h.SwitchesGet)
	switchGroup.PUT("/:key", h.SwitchesUpdate)
	switchGroup.DELETE("/:key", h.SwitchesDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
