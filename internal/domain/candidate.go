package domain

// MatchedFrom records which preference signal surfaced an external candidate.
type MatchedFrom string

// Provenance of externally-discovered candidates.
const (
	MatchedFromNone   MatchedFrom = ""
	MatchedFromAuthor MatchedFrom = "author"
	MatchedFromBook   MatchedFrom = "book"
)

// CandidateBook is a transient book under consideration for recommendation.
// Candidates come either from the photographed shelf (FromShelf) or from
// preference-driven external discovery.
type CandidateBook struct {
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	ISBN        string      `json:"isbn,omitempty"`
	CoverURL    string      `json:"cover_url,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Rating      string      `json:"rating,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	FromShelf   bool        `json:"from_shelf"`
	MatchedFrom MatchedFrom `json:"matched_from,omitempty"`
	MatchedTerm string      `json:"matched_term,omitempty"`
}

// ScoredRecommendation is a candidate annotated by the scorer.
type ScoredRecommendation struct {
	CandidateBook

	MatchScore        float64 `json:"match_score"`
	MatchReason       string  `json:"match_reason,omitempty"`
	AlreadyRead       bool    `json:"already_read"`
	OriginalReadTitle string  `json:"original_read_title,omitempty"`
}
