package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-api-usage",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/usage",
		Summary:     "Get API usage",
		Description: "Current rate limit usage per external API",
		Tags:        []string{"Admin"},
	}, s.handleGetUsage)

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-rate-limits",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/rate-limits/{api}/reset",
		Summary:     "Reset rate limits",
		Description: "Zeroes the window and daily counters for one API",
		Tags:        []string{"Admin"},
	}, s.handleResetRateLimits)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanup-cache",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/cache/cleanup",
		Summary:     "Clean up the book cache",
		Description: "Removes expired records and clears ratings lacking curated provenance",
		Tags:        []string{"Admin"},
	}, s.handleCleanupCache)
}

// === DTOs ===

// UsageOutput wraps per-API usage stats.
type UsageOutput struct {
	Body struct {
		APIs []ratelimit.UsageStat `json:"apis" doc:"Usage per configured API"`
	}
}

// ResetRateLimitsInput names the API to reset.
type ResetRateLimitsInput struct {
	API string `path:"api" maxLength:"64" doc:"API name (openai, google-books, open-library)"`
}

// ResetRateLimitsOutput is empty.
type ResetRateLimitsOutput struct{}

// CleanupCacheOutput reports what maintenance removed.
type CleanupCacheOutput struct {
	Body struct {
		ExpiredRemoved int `json:"expired_removed" doc:"Expired records deleted"`
		RatingsCleared int `json:"ratings_cleared" doc:"Untrusted ratings cleared"`
	}
}

// === Handlers ===

func (s *Server) handleGetUsage(ctx context.Context, _ *struct{}) (*UsageOutput, error) {
	out := &UsageOutput{}
	out.Body.APIs = s.limiter.UsageStats(ctx)
	return out, nil
}

func (s *Server) handleResetRateLimits(ctx context.Context, input *ResetRateLimitsInput) (*ResetRateLimitsOutput, error) {
	if err := s.limiter.ResetLimits(ctx, input.API); err != nil {
		s.logger.Error("rate limit reset failed", "api", input.API, "error", err)
		return nil, s.apiError(err)
	}
	return &ResetRateLimitsOutput{}, nil
}

func (s *Server) handleCleanupCache(ctx context.Context, _ *struct{}) (*CleanupCacheOutput, error) {
	expired, err := s.store.CleanupExpired(ctx)
	if err != nil {
		return nil, s.apiError(err)
	}
	cleared, err := s.store.CleanupNonOpenAIRatings(ctx)
	if err != nil {
		return nil, s.apiError(err)
	}

	out := &CleanupCacheOutput{}
	out.Body.ExpiredRemoved = expired
	out.Body.RatingsCleared = cleared
	return out, nil
}
