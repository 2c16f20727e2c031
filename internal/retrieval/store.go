package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Document is one searchable knowledge-base entry.
type Document struct {
	ID      string
	Title   string
	Content string
	Score   float32
}

// Store persists document embeddings in a Qdrant collection and runs cosine
// nearest-neighbor queries over them.
type Store struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	logger     *slog.Logger
}

func NewStore(log *slog.Logger, client *qdrant.Client, collection string, dims int) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		client:     client,
		collection: collection,
		dims:       uint64(dims),
		logger:     log.With(slog.String("service", "retrieval")),
	}
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dims,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.logger.Info("collection created", "collection", s.collection, "dims", s.dims)
	return nil
}

// Insert stores a document with its embedding. The document ID is generated
// when empty.
func (s *Store) Insert(ctx context.Context, doc Document, vector []float32) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":   doc.Title,
				"content": doc.Content,
			}),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("upsert document: %w", err)
	}
	return id, nil
}

// Nearest returns the k documents closest to the query vector.
func (s *Store) Nearest(ctx context.Context, vector []float32, k int) ([]Document, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	docs := make([]Document, 0, len(points))
	for _, p := range points {
		doc := Document{Score: p.GetScore()}
		if id := p.GetId(); id != nil {
			doc.ID = id.GetUuid()
		}
		payload := p.GetPayload()
		if v, ok := payload["title"]; ok {
			doc.Title = v.GetStringValue()
		}
		if v, ok := payload["content"]; ok {
			doc.Content = v.GetStringValue()
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
