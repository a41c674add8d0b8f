package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

// ParseGoodreadsCSV reads a Goodreads library export and returns the rows
// relevant to scoring. Column order follows the header, so partial or
// reordered exports still parse. Rows without a title are skipped.
func ParseGoodreadsCSV(r io.Reader) ([]domain.GoodreadsRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	titleCol, ok := columns["Title"]
	if !ok {
		return nil, fmt.Errorf("csv missing Title column")
	}
	authorCol, hasAuthor := columns["Author"]
	ratingCol, hasRating := columns["My Rating"]
	shelvesCol, hasShelves := columns["Bookshelves"]

	var rows []domain.GoodreadsRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One malformed row must not abort the import.
			continue
		}

		title := field(record, titleCol)
		if title == "" {
			continue
		}

		row := domain.GoodreadsRow{Title: title}
		if hasAuthor {
			row.Author = field(record, authorCol)
		}
		if hasRating {
			if rating, err := strconv.Atoi(field(record, ratingCol)); err == nil {
				row.MyRating = rating
			}
		}
		if hasShelves {
			row.Bookshelves = field(record, shelvesCol)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
