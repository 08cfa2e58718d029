package embedding

import (
	"fmt"
	"strings"

	"github.com/ultramynd/notesync/internal/types"
)

const (
	defaultCategoryName = "Uncategorized"
	defaultSourceName   = "Unknown Source"
	unknownDate         = "Unknown Date"

	// dateLayout renders dates as "Wed May 01 2024".
	dateLayout = "Mon Jan 02 2006"
)

// ErrEmptyContent is returned for takeaways with nothing to embed.
var ErrEmptyContent = fmt.Errorf("takeaway content is empty")

// Document builds the text sent to the embedding model for a takeaway and
// the metadata stored next to the resulting vector.
func Document(src types.EmbeddingSource) (string, types.EmbeddingMetadata, error) {
	if strings.TrimSpace(src.Content) == "" {
		return "", types.EmbeddingMetadata{}, ErrEmptyContent
	}

	category := src.CategoryName
	if category == "" {
		category = defaultCategoryName
	}
	source := src.SourceName
	if source == "" {
		source = defaultSourceName
	}
	date := unknownDate
	if src.CreatedAt != nil {
		date = src.CreatedAt.UTC().Format(dateLayout)
	}

	text := fmt.Sprintf("Date: %s. Context: %s / %s. Content: %s", date, category, source, src.Content)
	meta := types.EmbeddingMetadata{
		CreatedAt:    src.CreatedAt,
		CategoryID:   src.CategoryID,
		SourceID:     src.SourceID,
		CategoryName: category,
		SourceName:   source,
	}
	return text, meta, nil
}
