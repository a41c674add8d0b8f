package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/match"
)

// Preference weights. A genre hit is worth more than a catalog rating
// point, a favorite author dominates everything else.
const (
	genreBonus         = 10.0
	favoriteAuthor     = 25.0
	favoriteTitle      = 20.0
	historyAuthor      = 3.0
	historyAuthorLoved = 3.0
	rereadLoved        = 8.0
)

// ScoreCandidates scores every candidate against the preference profile and
// returns them ordered: new recommendations first (shelf detections before
// external discoveries on ties), then already-read books, each group sorted
// by descending score.
func ScoreCandidates(candidates []domain.CandidateBook, prefs *domain.PreferenceProfile) []domain.ScoredRecommendation {
	if prefs == nil {
		prefs = &domain.PreferenceProfile{}
	}

	var recommended, alreadyRead []domain.ScoredRecommendation
	for _, candidate := range candidates {
		scored := scoreCandidate(candidate, prefs)
		if scored.AlreadyRead {
			alreadyRead = append(alreadyRead, scored)
		} else {
			recommended = append(recommended, scored)
		}
	}

	sortScored(recommended)
	sortScored(alreadyRead)
	return append(recommended, alreadyRead...)
}

func scoreCandidate(candidate domain.CandidateBook, prefs *domain.PreferenceProfile) domain.ScoredRecommendation {
	scored := domain.ScoredRecommendation{CandidateBook: candidate}

	normTitle := match.Normalize(candidate.Title)
	candidateAuthor := strings.ToLower(strings.TrimSpace(candidate.Author))

	score := 0.0
	if rating, err := strconv.ParseFloat(candidate.Rating, 64); err == nil {
		score = rating
	}
	var reasons []string

	// Genre preferences: each matching category counts.
	for _, category := range candidate.Categories {
		lowerCategory := strings.ToLower(category)
		for _, genre := range prefs.Genres {
			cleaned := strings.TrimSpace(genre)
			if cleaned == "" || !strings.Contains(lowerCategory, strings.ToLower(cleaned)) {
				continue
			}
			score += genreBonus
			reasons = append(reasons, fmt.Sprintf("Matches your interest in %s", cleaned))
			break
		}
	}

	// Favorite authors.
	for _, favorite := range prefs.Authors {
		cleaned := strings.ToLower(strings.TrimSpace(favorite))
		if match.ContainsEither(candidateAuthor, cleaned) {
			score += favoriteAuthor
			reasons = append(reasons, fmt.Sprintf("By %s, one of your favorite authors", strings.TrimSpace(favorite)))
			break
		}
	}

	// Favorite titles.
	for _, favorite := range prefs.Books {
		cleaned := match.Normalize(favorite)
		if match.ContainsEither(normTitle, cleaned) {
			score += favoriteTitle
			reasons = append(reasons, fmt.Sprintf("Similar to %s, one of your favorites", strings.TrimSpace(favorite)))
			break
		}
	}

	// Imported reading history.
	historyAuthorHits := 0
	lovedAuthorHits := 0
	for i := range prefs.Goodreads {
		row := &prefs.Goodreads[i]

		rowAuthor := strings.ToLower(strings.TrimSpace(row.Author))
		if match.ContainsEither(candidateAuthor, rowAuthor) {
			score += historyAuthor
			historyAuthorHits++
			if row.MyRating >= 4 {
				score += historyAuthorLoved
				lovedAuthorHits++
			}
		}

		// Exact normalized-title equality, not containment: a sequel that
		// shares the series name must not count as already read.
		rowTitle := match.Normalize(row.Title)
		if rowTitle != "" && rowTitle == normTitle {
			if row.MyRating >= 4 {
				score += rereadLoved
				reasons = append(reasons, "You already read and loved this")
			} else if row.MyRating >= 1 {
				score += float64(row.MyRating)
				reasons = append(reasons, "You've already read this")
			}
			if !scored.AlreadyRead && row.MyRating > 0 {
				scored.AlreadyRead = true
				scored.OriginalReadTitle = row.Title
			}
		}
	}
	if historyAuthorHits > 0 {
		if lovedAuthorHits > 0 {
			reasons = append(reasons, "You've read and enjoyed books by this author")
		} else {
			reasons = append(reasons, "You've read books by this author")
		}
	}

	if score < 0 {
		score = 0
	}

	scored.MatchScore = score
	scored.MatchReason = strings.Join(reasons, "; ")
	return scored
}

// sortScored orders by descending score; on ties, shelf detections come
// before external discoveries.
func sortScored(items []domain.ScoredRecommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].MatchScore != items[j].MatchScore {
			return items[i].MatchScore > items[j].MatchScore
		}
		return items[i].FromShelf && !items[j].FromShelf
	})
}
