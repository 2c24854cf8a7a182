package documentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisDocumentStore keeps one hash per document plus a ZSET ordered by
// upload time for newest-first listing.
type redisDocumentStore struct {
	rdb redis.Cmdable
}

func NewRedisDocumentStore(rdb redis.Cmdable) *redisDocumentStore {
	return &redisDocumentStore{rdb: rdb}
}

func (s *redisDocumentStore) Create(ctx context.Context, p domain.CreateDocumentParams) (string, error) {
	if p.FileHashSHA != "" {
		existingID, err := s.rdb.Get(ctx, hashKey(p.FileHashSHA)).Result()
		if err == nil && existingID != "" {
			// Same PDF already uploaded; reuse the record instead of
			// indexing it twice.
			return existingID, nil
		} else if err != nil && err != redis.Nil {
			return "", fmt.Errorf("redis get hash index: %w", err)
		}
	}

	docID := uuid.NewString()
	now := time.Now()

	pipe := s.rdb.TxPipeline()

	pipe.HSet(ctx, docKey(docID), map[string]interface{}{
		"id":            docID,
		"status":        string(domain.StatusPending),
		"filename":      p.Filename,
		"object_name":   p.ObjectName,
		"file_size":     p.FileSize,
		"file_hash_sha": p.FileHashSHA,
		"error":         "",
		"result":        "",
		"upload_time":   now.UnixNano(),
		"updated_at":    now.UnixNano(),
	})

	pipe.ZAdd(ctx, docsByUploadKey(), redis.Z{
		Score:  float64(now.Unix()),
		Member: docID,
	})

	if p.FileHashSHA != "" {
		pipe.Set(ctx, hashKey(p.FileHashSHA), docID, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis pipeline create document: %w", err)
	}

	return docID, nil
}

func (s *redisDocumentStore) Get(ctx context.Context, id string) (domain.Document, bool) {
	res, err := s.rdb.HGetAll(ctx, docKey(id)).Result()
	if err != nil || len(res) == 0 {
		return domain.Document{}, false
	}

	doc := domain.Document{
		ID:          id,
		Status:      domain.DocumentStatus(res["status"]),
		Filename:    res["filename"],
		ObjectName:  res["object_name"],
		FileHashSHA: res["file_hash_sha"],
		Error:       res["error"],
	}

	if v := res["file_size"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			doc.FileSize = n
		}
	}
	if v := res["upload_time"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			doc.UploadTime = time.Unix(0, n)
		}
	}
	if v := res["updated_at"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			doc.UpdatedAt = time.Unix(0, n)
		}
	}
	if v := res["result"]; v != "" {
		var result domain.AnalysisResult
		if err := json.Unmarshal([]byte(v), &result); err == nil {
			doc.Result = &result
		} else {
			slog.Warn("redis document store: corrupt result payload",
				slog.String("document_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return doc, true
}

func (s *redisDocumentStore) SetStatus(ctx context.Context, id string, status domain.DocumentStatus, errReason string) {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, docKey(id), "status", string(status))
	pipe.HSet(ctx, docKey(id), "error", errReason)
	pipe.HSet(ctx, docKey(id), "updated_at", time.Now().UnixNano())

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("redis SetStatus", slog.String("error", err.Error()))
	}
}

func (s *redisDocumentStore) SetResult(ctx context.Context, id string, result *domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, docKey(id), "result", string(payload))
	pipe.HSet(ctx, docKey(id), "error", "")
	pipe.HSet(ctx, docKey(id), "status", string(domain.StatusCompleted))
	pipe.HSet(ctx, docKey(id), "updated_at", time.Now().UnixNano())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline SetResult: %w", err)
	}
	return nil
}

// List returns all documents, newest upload first.
func (s *redisDocumentStore) List(ctx context.Context) ([]domain.Document, error) {
	ids, err := s.rdb.ZRevRange(ctx, docsByUploadKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.Get(ctx, id); ok {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func (s *redisDocumentStore) Delete(ctx context.Context, id string) error {
	doc, ok := s.Get(ctx, id)
	if !ok {
		return domain.ErrDocumentNotFound
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, docKey(id))
	pipe.ZRem(ctx, docsByUploadKey(), id)
	if doc.FileHashSHA != "" {
		pipe.Del(ctx, hashKey(doc.FileHashSHA))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline delete document: %w", err)
	}
	return nil
}

func (s *redisDocumentStore) Counts(ctx context.Context) (domain.StatusCounts, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return domain.StatusCounts{}, err
	}

	var counts domain.StatusCounts
	counts.Total = len(docs)
	for _, doc := range docs {
		switch doc.Status {
		case domain.StatusPending, domain.StatusProcessing:
			counts.Processing++
		case domain.StatusCompleted:
			counts.Completed++
		case domain.StatusFailed:
			counts.Failed++
		}
	}

	return counts, nil
}

func docKey(id string) string {
	return "doc:" + id
}

func hashKey(h string) string {
	return "doc:hash:" + h
}

func docsByUploadKey() string {
	return "docs:by_upload"
}
