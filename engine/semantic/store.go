// Package semantic owns the passage index: per-corpus Qdrant collections of
// (doc_id, position, vector, text) entries with cosine similarity search.
package semantic

import (
	"context"
	"fmt"
	"sort"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// upsertBatchSize is the max points per upsert request.
const upsertBatchSize = 100

// pointsAPI is the slice of Qdrant's points service this store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
}

// collectionsAPI is the slice of Qdrant's collections service this store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// NewWithClients creates a VectorStore from existing clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI) *VectorStore {
	return &VectorStore{points: points, collections: collections}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollections creates the per-corpus collections that don't exist yet.
func (v *VectorStore) EnsureCollections(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	existing := make(map[string]bool, len(list.GetCollections()))
	for _, c := range list.GetCollections() {
		existing[c.GetName()] = true
	}

	d := uint64(dims)
	for corpus := range domain.ValidCorpora {
		name := CollectionFor(corpus)
		if existing[name] {
			continue
		}
		_, err := v.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: name,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     d,
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("semantic: create collection %s: %w", name, err)
		}
	}
	return nil
}

// ReplaceDocument atomically swaps a document's indexed passages: all entries
// previously stored for (corpus, docID) are deleted, then the new set is
// upserted in batches. Re-indexing is idempotent and non-accumulating.
func (v *VectorStore) ReplaceDocument(ctx context.Context, corpus domain.Corpus, docID string, records []VectorRecord) error {
	collection := CollectionFor(corpus)
	wait := true

	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch("doc_id", docID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete doc %s/%s: %w", corpus, docID, err)
	}

	for i := 0; i < len(records); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]

		points := make([]*pb.PointStruct, len(batch))
		for j, r := range batch {
			points[j] = &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: r.Embedding},
					},
				},
				Payload: toPayload(r.Payload),
			}
		}

		_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("semantic: upsert %d points for %s/%s: %w", len(batch), corpus, docID, err)
		}
	}
	return nil
}

// Search performs k-NN cosine similarity search in a corpus, optionally
// restricted to one document. An empty corpus or document yields an empty
// result, not an error. Ties break by ascending position, then document id,
// for deterministic output.
func (v *VectorStore) Search(ctx context.Context, corpus domain.Corpus, vector []float32, topK int, docID string) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: CollectionFor(corpus),
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if docID != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{fieldMatch("doc_id", docID)},
		}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w", corpus, err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SearchResult{
			ID:    r.GetId().GetUuid(),
			Score: r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "text":
				sr.Text = val.GetStringValue()
			case "doc_id":
				sr.DocID = val.GetStringValue()
			case "corpus":
				sr.Corpus = val.GetStringValue()
			case "position":
				sr.Position = int(val.GetIntegerValue())
			}
		}
		results[i] = sr
	}
	SortDeterministic(results)
	return results, nil
}

// ListDocumentIDs returns the unique, sorted document ids indexed in a
// corpus, for catalog purposes.
func (v *VectorStore) ListDocumentIDs(ctx context.Context, corpus domain.Corpus) ([]string, error) {
	collection := CollectionFor(corpus)
	limit := uint32(256)

	seen := make(map[string]bool)
	var offset *pb.PointId
	for {
		resp, err := v.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Include{
					Include: &pb.PayloadIncludeSelector{Fields: []string{"doc_id"}},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("semantic: scroll %s: %w", corpus, err)
		}
		for _, p := range resp.GetResult() {
			if id := p.GetPayload()["doc_id"].GetStringValue(); id != "" {
				seen[id] = true
			}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			break
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SortDeterministic orders results by descending score, breaking ties by
// ascending position and then document id.
func SortDeterministic(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Position != results[j].Position {
			return results[i].Position < results[j].Position
		}
		return results[i].DocID < results[j].DocID
	})
}

func toPayload(kv map[string]any) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(kv))
	for k, val := range kv {
		switch tv := val.(type) {
		case string:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return payload
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
