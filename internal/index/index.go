// Package index wraps the Qdrant vector index service.
//
// The index stores (product id, vector, metadata) triples in one collection
// and answers nearest-neighbor queries. Upserts are idempotent by point id:
// re-syncing a product fully replaces its vector and payload, never
// duplicates it.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	// ErrUnavailable indicates the index service could not be reached or
	// reported a transient failure. Retryable with backoff.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector's width does not match the
	// collection's configured dimension. Fatal: requires a re-sync with a
	// corrected embedding dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Hit is one ranked search result with its stored payload.
type Hit struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// collectionsAPI and pointsAPI mirror the Qdrant gRPC clients the Client
// consumes. Defined here so tests can substitute fakes.
type collectionsAPI interface {
	CollectionExists(ctx context.Context, in *pb.CollectionExistsRequest, opts ...grpc.CallOption) (*pb.CollectionExistsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
}

type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// Client is a Qdrant-backed vector index for the product catalog.
type Client struct {
	conn        *grpc.ClientConn
	collections collectionsAPI
	points      pointsAPI
	name        string
	dimension   int
	distance    pb.Distance
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New dials Qdrant and returns a client bound to one collection.
// metric is one of "cosine", "euclid" or "dot".
func New(host string, port int, name string, dimension int, metric string, opts ...Option) (*Client, error) {
	distance, err := parseMetric(metric)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	c := &Client{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		name:        name,
		dimension:   dimension,
		distance:    distance,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseMetric(metric string) (pb.Distance, error) {
	switch metric {
	case "cosine":
		return pb.Distance_Cosine, nil
	case "euclid":
		return pb.Distance_Euclid, nil
	case "dot":
		return pb.Distance_Dot, nil
	default:
		return pb.Distance_UnknownDistance, fmt.Errorf("unknown distance metric %q", metric)
	}
}

// Readiness polling bounds.
const (
	readyPollInitial = 500 * time.Millisecond
	readyPollMax     = 5 * time.Second
)

// Ensure creates the collection if it does not exist, then blocks until the
// collection reports ready. Safe to call on every sync run.
func (c *Client) Ensure(ctx context.Context) error {
	existsResp, err := c.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: c.name,
	})
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrUnavailable, err)
	}

	if !existsResp.GetResult().GetExists() {
		_, err := c.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: c.name,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(c.dimension),
						Distance: c.distance,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("%w: creating collection %q: %v", ErrUnavailable, c.name, err)
		}
		c.logger.Info("created vector index collection",
			"collection", c.name, "dimension", c.dimension)
	}

	return c.waitReady(ctx)
}

// waitReady polls collection status with exponential backoff until green.
func (c *Client) waitReady(ctx context.Context) error {
	delay := readyPollInitial
	for {
		info, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{
			CollectionName: c.name,
		})
		if err != nil {
			return fmt.Errorf("%w: describing collection: %v", ErrUnavailable, err)
		}
		if info.GetResult().GetStatus() == pb.CollectionStatus_Green {
			return nil
		}

		c.logger.Debug("waiting for collection to become ready",
			"collection", c.name, "status", info.GetResult().GetStatus().String(), "delay", delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for collection readiness: %v", ErrUnavailable, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, readyPollMax)
		}
	}
}

// Upsert writes index-aligned (id, vector, metadata) triples in one call.
// Writing an id again fully replaces its vector and payload. The write waits
// for the index to apply the whole batch before returning, so readers never
// observe a half-written batch.
func (c *Client) Upsert(ctx context.Context, ids []int64, vectors [][]float32, metadata []map[string]string) error {
	if len(ids) != len(vectors) || len(ids) != len(metadata) {
		return fmt.Errorf("misaligned upsert batch: %d ids, %d vectors, %d metadata",
			len(ids), len(vectors), len(metadata))
	}

	points := make([]*pb.PointStruct, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != c.dimension {
			return fmt.Errorf("%w: point %d has dimension %d, collection wants %d",
				ErrDimensionMismatch, id, len(vectors[i]), c.dimension)
		}
		payload := make(map[string]*pb.Value, len(metadata[i]))
		for k, v := range metadata[i] {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
			Payload: payload,
		}
	}

	wait := true
	if _, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", ErrUnavailable, len(points), err)
	}

	c.logger.Debug("upserted points", "collection", c.name, "points", len(points))
	return nil
}

// Search returns up to k ranked hits for the query vector. An empty result
// is a normal outcome, not an error. minScore <= 0 disables the floor.
func (c *Client) Search(ctx context.Context, vector []float32, k int, minScore float32) ([]Hit, error) {
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection wants %d",
			ErrDimensionMismatch, len(vector), c.dimension)
	}

	req := &pb.SearchPoints{
		CollectionName: c.name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if minScore > 0 {
		req.ScoreThreshold = &minScore
	}

	resp, err := c.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		meta := make(map[string]string, len(pt.GetPayload()))
		for k, v := range pt.GetPayload() {
			meta[k] = v.GetStringValue()
		}
		hits = append(hits, Hit{
			ID:       strconv.FormatUint(pt.GetId().GetNum(), 10),
			Score:    pt.GetScore(),
			Metadata: meta,
		})
	}
	return hits, nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
