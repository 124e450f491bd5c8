// Package handlers holds the HTTP building blocks that sit in front of
// the API routes: dependency health checks, the registrar's API-key gate,
// and the rate limiting that survives registration mornings.
//
// # Health checks
//
// CompositeHealthChecker fans out named probes in parallel and folds the
// results into one status for /health:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewDatabaseCheck(conn))
//	checker.AddCheck("redis", handlers.NewCacheCheck(cache))
//	checker.AddCheck("smtp", handlers.NewMailRelayCheck(mailClient))
//
//	status := checker.Check(ctx)
//
// A slow probe cannot stall the endpoint: every probe runs under the
// checker's timeout and reports its own latency.
//
// # Registrar authentication
//
// The administrative endpoints (register student, add course, record
// completion) sit behind an API key. Only a bcrypt hash of the key is
// ever configured:
//
//	auth := handlers.NewAPIKeyAuth("X-API-Key", cfg.HTTP.AdminAPIKeyHash)
//	protected := auth.Middleware(adminRoutes)
//
// # Rate limiting
//
// RedisRateLimiter keeps one counter per caller in Redis so the limit
// holds across api replicas:
//
//	limiter := handlers.NewRedisRateLimiter(cache.Client(), 120, time.Minute, log)
//	if !limiter.Allow(ctx, clientIP) {
//	    // 429
//	}
//
// The limiter fails open. When Redis is unreachable requests are
// admitted, because refusing every student over a cache outage is the
// worse failure.
//
// # Assembling middleware
//
// Chain composes middleware so the first entry ends up outermost:
//
//	wrapped := handlers.Chain(
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1 << 20),
//	    auth.Middleware,
//	)(adminRoutes)
package handlers
