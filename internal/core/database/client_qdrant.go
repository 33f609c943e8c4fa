package db

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/markdave123-py/flowllm/internal/config"
	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// Payload keys added next to the record metadata.
const (
	payloadNamespace = "namespace"
	payloadRecordID  = "record_id"
)

// QdrantStore keeps all namespaces in one collection. Qdrant only accepts
// UUID or integer point ids, so record ids are mapped to name-based UUIDs and
// the original id is kept in the payload.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dim        int
	logger     *slog.Logger
}

func NewQdrantStore(ctx context.Context, cfg *config.Config) (*QdrantStore, error) {
	host, port := parseHostPort(cfg.QdrantAddr, "localhost", 6334)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantAPIKey != "",
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.QdrantCollection,
		dim:        cfg.EmbedDim,
		logger:     slog.Default().With("component", "qdrant"),
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("qdrant list collections: %w", err)
	}
	if slices.Contains(collections, s.collection) {
		s.logger.Info("collection exists", "collection", s.collection)
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
	}
	s.logger.Info("created collection", "collection", s.collection, "dim", s.dim)
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Upsert sends all points in one request and waits until they are applied.
func (s *QdrantStore) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(namespace, records, s.dim); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(namespace, r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: qdrant.NewValueMap(pointPayload(namespace, r)),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	s.logger.Debug("upserted points", "namespace", namespace, "count", len(points))
	return nil
}

// pointID is stable for a (namespace, record id) pair, so re-ingestion overwrites.
func pointID(namespace, recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(namespace+"/"+recordID)).String()
}

func pointPayload(namespace string, r models.VectorRecord) map[string]any {
	payload := make(map[string]any, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		payload[k] = v
	}
	payload[payloadNamespace] = namespace
	payload[payloadRecordID] = r.ID
	return payload
}

func parseHostPort(addr string, defaultHost string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

var _ core.VectorStore = (*QdrantStore)(nil)
