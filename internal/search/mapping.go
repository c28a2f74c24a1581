package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
//
//  1. Titles use the English analyzer (stemming) for title search
//  2. Authors use the simple analyzer; values are pre-folded so "Bronte" finds "Brontë"
//  3. ISBN and the sort key are keywords
//  4. Publication year and average rating are numeric for range queries
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields ---

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	origTitleFieldMapping := bleve.NewTextFieldMapping()
	origTitleFieldMapping.Analyzer = en.AnalyzerName
	origTitleFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("original_title", origTitleFieldMapping)

	authorsFieldMapping := bleve.NewTextFieldMapping()
	authorsFieldMapping.Analyzer = simple.Name
	authorsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("authors", authorsFieldMapping)

	// --- Keyword fields ---

	isbnFieldMapping := bleve.NewTextFieldMapping()
	isbnFieldMapping.Analyzer = keyword.Name
	isbnFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("isbn", isbnFieldMapping)

	titleSortFieldMapping := bleve.NewTextFieldMapping()
	titleSortFieldMapping.Analyzer = keyword.Name
	titleSortFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("title_sort", titleSortFieldMapping)

	// --- Numeric fields ---

	publicationFieldMapping := bleve.NewNumericFieldMapping()
	publicationFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("publication", publicationFieldMapping)

	averageFieldMapping := bleve.NewNumericFieldMapping()
	averageFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("average", averageFieldMapping)

	countFieldMapping := bleve.NewNumericFieldMapping()
	countFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("rating_count", countFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
