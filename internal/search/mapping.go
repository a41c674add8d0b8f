package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for book documents.
// Title and author get English stemming and term vectors for highlighting,
// summaries are searchable but not stored, and source/isbn are exact-match
// keywords for filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = en.AnalyzerName
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = en.AnalyzerName
	authorField.Store = true
	authorField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorField)

	summaryField := bleve.NewTextFieldMapping()
	summaryField.Analyzer = en.AnalyzerName
	summaryField.Store = false
	docMapping.AddFieldMappingsAt("summary", summaryField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idField)

	isbnField := bleve.NewTextFieldMapping()
	isbnField.Analyzer = keyword.Name
	isbnField.Store = true
	docMapping.AddFieldMappingsAt("isbn", isbnField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Analyzer = keyword.Name
	sourceField.Store = true
	docMapping.AddFieldMappingsAt("source", sourceField)

	ratingField := bleve.NewNumericFieldMapping()
	ratingField.Store = true
	docMapping.AddFieldMappingsAt("rating", ratingField)

	cachedAtField := bleve.NewNumericFieldMapping()
	cachedAtField.Store = true
	docMapping.AddFieldMappingsAt("cached_at", cachedAtField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
