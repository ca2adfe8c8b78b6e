// Package vectorstore wraps the Qdrant collection holding the
// attraction corpus. It exposes the five operations the search and
// enrichment layers need (Search, Retrieve, Scroll, SetPayload, Count)
// over the gRPC client, with payloads converted to plain Go maps.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/tamadze/tamada/config"
)

// Store is a thin session against one Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
	vectorSize int
}

// New connects to Qdrant. The connection is lazy on the gRPC level, so
// construction succeeds even when the server is still coming up.
func New(cfg config.QdrantConfig) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	slog.Info("Vector store configured",
		"host", cfg.Host,
		"port", cfg.Port,
		"collection", cfg.Collection,
		"vector_size", cfg.VectorSize)

	return &Store{
		client:     client,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
	}, nil
}

// Collection returns the collection name the store is bound to.
func (s *Store) Collection() string { return s.collection }

// VectorSize returns the expected embedding dimensionality.
func (s *Store) VectorSize() int { return s.vectorSize }

// Search runs a vector similarity query, optionally constrained by a
// filter. Results come back ordered by score descending.
func (s *Store) Search(ctx context.Context, vector []float32, filter *Filter, limit int, withPayload bool) ([]Point, error) {
	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    qdrant.NewWithPayload(withPayload),
	}
	if qf := filter.ToQdrant(); qf != nil {
		req.Filter = qf
	}

	res, err := s.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	points := make([]Point, 0, len(res.GetResult()))
	for _, sp := range res.GetResult() {
		points = append(points, Point{
			ID:      pointIDString(sp.GetId()),
			Score:   sp.GetScore(),
			Payload: payloadToMap(sp.GetPayload()),
		})
	}
	return points, nil
}

// Retrieve fetches points by id.
func (s *Store) Retrieve(ctx context.Context, ids []string, withPayload bool) ([]Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	res, err := s.client.GetPointsClient().Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(withPayload),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve points: %w", err)
	}

	points := make([]Point, 0, len(res.GetResult()))
	for _, rp := range res.GetResult() {
		points = append(points, Point{
			ID:      pointIDString(rp.GetId()),
			Payload: payloadToMap(rp.GetPayload()),
		})
	}
	return points, nil
}

// Scroll pages through points matching a filter without scoring them.
// The prefilter stage uses it with withPayload=false to collect
// candidate ids cheaply.
func (s *Store) Scroll(ctx context.Context, filter *Filter, limit int, withPayload bool) ([]Point, error) {
	limit32 := uint32(limit)
	req := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &limit32,
		WithPayload:    qdrant.NewWithPayload(withPayload),
	}
	if qf := filter.ToQdrant(); qf != nil {
		req.Filter = qf
	}

	res, err := s.client.GetPointsClient().Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	points := make([]Point, 0, len(res.GetResult()))
	for _, rp := range res.GetResult() {
		points = append(points, Point{
			ID:      pointIDString(rp.GetId()),
			Payload: payloadToMap(rp.GetPayload()),
		})
	}
	return points, nil
}

// SetPayload merges payload fields into one point. Existing keys are
// overwritten whole; absent keys are left alone.
func (s *Store) SetPayload(ctx context.Context, id string, payload map[string]any) error {
	qp, err := toQdrantPayload(payload)
	if err != nil {
		return err
	}

	_, err = s.client.GetPointsClient().SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.collection,
		Payload:        qp,
		PointsSelector: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{pointID(id)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set payload on point %s: %w", id, err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	res, err := s.client.GetPointsClient().Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return res.GetResult().GetCount(), nil
}

// CollectionExists reports whether the configured collection is
// present; the health endpoint uses it as the liveness probe.
func (s *Store) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check if collection exists: %w", err)
	}
	return exists, nil
}

// Close tears down the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
