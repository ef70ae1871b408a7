package appwrite

import (
	"context"
	"net/http"
	"net/url"
)

// Document is a single Appwrite document. System attributes are prefixed with "$".
type Document map[string]any

// ID returns the document's $id.
func (d Document) ID() string {
	return d.String("$id")
}

// String returns attribute key as a string, or "" when missing or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// DocumentList is the response of a list call.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// Databases is the Databases service of a project.
type Databases struct {
	client *Client
}

// NewDatabases wraps client.
func NewDatabases(client *Client) *Databases {
	return &Databases{client: client}
}

func documentsPath(databaseID, collectionID string) string {
	return "/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID) + "/documents"
}

// ListDocuments lists documents in a collection, filtered and ordered by queries
// built with the sdk-for-go query package.
func (d *Databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*DocumentList, error) {
	q := url.Values{}
	for _, query := range queries {
		q.Add("queries[]", query)
	}
	var list DocumentList
	if err := d.client.call(ctx, http.MethodGet, documentsPath(databaseID, collectionID), q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetDocument fetches one document by id.
func (d *Databases) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (Document, error) {
	var doc Document
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	if err := d.client.call(ctx, http.MethodGet, path, nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Services groups the project services handed to the rest of the application.
type Services struct {
	Databases *Databases
}

// NewServices builds a client for cfg and the services on top of it.
func NewServices(cfg Config) (*Services, error) {
	client, err := NewClient(cfg, nil)
	if err != nil {
		return nil, err
	}
	return &Services{Databases: NewDatabases(client)}, nil
}

// Endpoint returns the base URL of the underlying client.
func (d *Databases) Endpoint() string {
	return d.client.Endpoint()
}
