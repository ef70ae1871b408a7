package content

import (
	"context"
	"fmt"

	"github.com/appwrite/sdk-for-go/query"

	"github.com/neurofin/website/pkg/appwrite"
)

// DocumentLister is the part of the Appwrite Databases service the source needs.
type DocumentLister interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*appwrite.DocumentList, error)
}

// AppwriteSource reads posts from an Appwrite collection whose documents carry
// title, date, href and description attributes.
type AppwriteSource struct {
	databases    DocumentLister
	databaseID   string
	collectionID string
	limit        int
}

// NewAppwriteSource returns a source over one collection. limit caps the number
// of posts fetched; zero means Appwrite's default page size.
func NewAppwriteSource(databases DocumentLister, databaseID, collectionID string, limit int) *AppwriteSource {
	return &AppwriteSource{
		databases:    databases,
		databaseID:   databaseID,
		collectionID: collectionID,
		limit:        limit,
	}
}

// Posts implements Source.
func (s *AppwriteSource) Posts(ctx context.Context) ([]Post, error) {
	queries := []string{query.OrderDesc("date")}
	if s.limit > 0 {
		queries = append(queries, query.Limit(s.limit))
	}

	list, err := s.databases.ListDocuments(ctx, s.databaseID, s.collectionID, queries...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts from appwrite: %w", err)
	}

	posts := make([]Post, 0, len(list.Documents))
	for _, doc := range list.Documents {
		date, err := ParseDate(doc.String("date"))
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID(), err)
		}
		p := Post{
			Title:       doc.String("title"),
			Date:        date,
			Href:        doc.String("href"),
			Description: doc.String("description"),
		}
		if err = p.Validate(); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID(), err)
		}
		posts = append(posts, p)
	}
	SortNewestFirst(posts)
	return posts, nil
}
