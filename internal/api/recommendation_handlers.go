package api

import (
	"context"
	"math"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "build-recommendations",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations",
		Summary:     "Build recommendations",
		Description: "Scores detected shelf titles and preference-driven discoveries against the device's preferences",
		Tags:        []string{"Recommendations"},
	}, s.handleBuildRecommendations)
}

// === DTOs ===

// PreferencePayload is an inline preference profile for one-shot requests.
type PreferencePayload struct {
	Genres  []string `json:"genres,omitempty" doc:"Preferred genres"`
	Authors []string `json:"authors,omitempty" doc:"Favorite authors"`
	Books   []string `json:"books,omitempty" doc:"Favorite book titles"`
}

// RecommendationRequest carries detected titles plus preference context.
type RecommendationRequest struct {
	DeviceID    string             `json:"device_id,omitempty" doc:"Device whose saved preferences to use"`
	Titles      []string           `json:"titles" maxItems:"100" doc:"Book titles detected on the shelf"`
	Preferences *PreferencePayload `json:"preferences,omitempty" doc:"Inline preferences, overriding saved ones"`
}

// RecommendationItem is one scored book in the response.
type RecommendationItem struct {
	Title             string   `json:"title" doc:"Book title"`
	Author            string   `json:"author,omitempty" doc:"Author"`
	ISBN              string   `json:"isbn,omitempty" doc:"ISBN when known"`
	CoverURL          string   `json:"cover_url,omitempty" doc:"Cover image URL"`
	Summary           string   `json:"summary,omitempty" doc:"Curated summary"`
	Rating            string   `json:"rating,omitempty" doc:"Curated rating"`
	Categories        []string `json:"categories,omitempty" doc:"Catalog categories"`
	MatchScore        int      `json:"match_score" doc:"Preference match score, rounded for display"`
	MatchReason       string   `json:"match_reason,omitempty" doc:"Why this book was recommended"`
	FromShelf         bool     `json:"from_shelf" doc:"Detected on the photographed shelf"`
	MatchedFrom       string   `json:"matched_from,omitempty" doc:"Preference signal that surfaced an external candidate (author or book)"`
	MatchedTerm       string   `json:"matched_term,omitempty" doc:"The originating preference string"`
	AlreadyRead       bool     `json:"already_read,omitempty" doc:"Matches the imported reading history"`
	OriginalReadTitle string   `json:"original_read_title,omitempty" doc:"History entry this book matched"`
}

// RecommendationResponse is the ordered recommendation list.
type RecommendationResponse struct {
	Recommendations []RecommendationItem `json:"recommendations" doc:"New books first, already-read last"`
}

// RecommendationInput wraps the request body for Huma.
type RecommendationInput struct {
	Body RecommendationRequest
}

// RecommendationOutput wraps the response body for Huma.
type RecommendationOutput struct {
	Body RecommendationResponse
}

// === Handlers ===

func (s *Server) handleBuildRecommendations(ctx context.Context, input *RecommendationInput) (*RecommendationOutput, error) {
	prefs := s.resolvePreferences(ctx, &input.Body)

	scored, err := s.services.Recommendation.BuildFromShelf(ctx, input.Body.Titles, prefs)
	if err != nil {
		return nil, s.apiError(err)
	}

	resp := RecommendationResponse{
		Recommendations: make([]RecommendationItem, 0, len(scored)),
	}
	for i := range scored {
		item := &scored[i]
		resp.Recommendations = append(resp.Recommendations, RecommendationItem{
			Title:             item.Title,
			Author:            item.Author,
			ISBN:              item.ISBN,
			CoverURL:          item.CoverURL,
			Summary:           item.Summary,
			Rating:            item.Rating,
			Categories:        item.Categories,
			MatchScore:        int(math.Round(item.MatchScore)),
			MatchReason:       item.MatchReason,
			FromShelf:         item.FromShelf,
			MatchedFrom:       string(item.MatchedFrom),
			MatchedTerm:       item.MatchedTerm,
			AlreadyRead:       item.AlreadyRead,
			OriginalReadTitle: item.OriginalReadTitle,
		})
	}
	return &RecommendationOutput{Body: resp}, nil
}

// resolvePreferences prefers inline preferences, falls back to the device's
// saved profile, and returns nil when neither exists. Inline preferences
// still pick up the saved Goodreads history so scoring sees it.
func (s *Server) resolvePreferences(ctx context.Context, req *RecommendationRequest) *domain.PreferenceProfile {
	var saved *domain.PreferenceProfile
	if req.DeviceID != "" {
		profile, err := s.services.Preference.Get(ctx, req.DeviceID)
		if err == nil {
			saved = profile
		}
	}

	if req.Preferences == nil {
		return saved
	}

	prefs := &domain.PreferenceProfile{
		DeviceID: req.DeviceID,
		Genres:   req.Preferences.Genres,
		Authors:  req.Preferences.Authors,
		Books:    req.Preferences.Books,
	}
	if saved != nil {
		prefs.Goodreads = saved.Goodreads
	}
	return prefs
}
