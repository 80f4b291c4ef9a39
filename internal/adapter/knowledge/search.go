package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"agent-swarm/internal/domain"
)

// scoredChunk pairs a chunk with its relevance score.
type scoredChunk struct {
	chunk Chunk
	score float64
}

// Search combines keyword (FTS5) and vector (cosine) search using Reciprocal
// Rank Fusion. An empty index yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 3
	}
	fetchLimit := limit * 2

	kwResults, kwErr := s.keywordSearch(ctx, query, fetchLimit)
	vecResults, vecErr := s.vectorSearch(ctx, query, fetchLimit)

	if kwErr != nil && vecErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeSearch, kwErr)
	}

	var scored []scoredChunk
	switch {
	case kwErr != nil:
		scored = chunksToScored(vecResults)
	case vecErr != nil || len(vecResults) == 0:
		scored = chunksToScored(kwResults)
	default:
		scored = reciprocalRankFusion(kwResults, vecResults)
	}

	if len(scored) > limit {
		scored = scored[:limit]
	}

	result := make([]Chunk, len(scored))
	for i, sc := range scored {
		result[i] = sc.chunk
	}
	return result, nil
}

// Retrieve returns the content of the top chunks for query, for prompt
// context injection.
func (s *Store) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	chunks, err := s.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, len(chunks))
	for i, c := range chunks {
		snippets[i] = c.Content
	}
	return snippets, nil
}

// keywordSearch performs FTS5 full-text search. If the query contains FTS5
// syntax errors, it falls back to a LIKE-based search.
func (s *Store) keywordSearch(ctx context.Context, query string, limit int) ([]Chunk, error) {
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.source, c.content
		 FROM chunks_fts f
		 JOIN chunks c ON c.rowid = f.rowid
		 WHERE chunks_fts MATCH ?
		 ORDER BY bm25(chunks_fts)
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		// FTS5 syntax error from special characters, fall back to LIKE.
		return s.likeSearch(ctx, query, limit)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		// MATCH is a bound parameter, so syntax errors surface at step time.
		return s.likeSearch(ctx, query, limit)
	}
	return chunks, nil
}

// likeSearch is a fallback when FTS5 MATCH fails due to special characters.
func (s *Store) likeSearch(ctx context.Context, query string, limit int) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, content FROM chunks WHERE content LIKE ? LIMIT ?",
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// vectorSearch embeds the query and ranks chunks by cosine similarity.
func (s *Store) vectorSearch(ctx context.Context, query string, limit int) ([]Chunk, error) {
	if s.embedder == nil {
		return nil, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	queryVec := vecs[0]

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, content, embedding FROM chunks WHERE embedding IS NOT NULL",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []scoredChunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.Content, &blob); err != nil {
			continue
		}
		sim := cosineSimilarity(queryVec, bytesToFloat32(blob))
		if sim <= 0 {
			continue
		}
		candidates = append(candidates, scoredChunk{chunk: c, score: float64(sim)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	result := make([]Chunk, 0, min(limit, len(candidates)))
	for i := 0; i < len(candidates) && i < limit; i++ {
		result = append(result, candidates[i].chunk)
	}
	return result, nil
}

// cosineSimilarity computes dot(a,b) / (||a|| * ||b||).
// Returns 0 for zero-length vectors, length mismatch, or NaN/Inf results.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denom == 0 {
		return 0
	}
	result := dot / denom
	if math.IsNaN(float64(result)) || math.IsInf(float64(result), 0) {
		return 0
	}
	return result
}

// chunksToScored converts a plain chunk slice to scored chunks with
// descending rank-based scores, for use when only one search source is
// available.
func chunksToScored(chunks []Chunk) []scoredChunk {
	scored := make([]scoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = scoredChunk{chunk: c, score: 1.0 / float64(i+1)}
	}
	return scored
}

// reciprocalRankFusion merges two ranked lists using RRF (k=60).
func reciprocalRankFusion(list1, list2 []Chunk) []scoredChunk {
	const k = 60

	scores := make(map[string]float64)
	chunks := make(map[string]Chunk)

	for rank, c := range list1 {
		scores[c.ID] += 1.0 / float64(k+rank+1)
		chunks[c.ID] = c
	}
	for rank, c := range list2 {
		scores[c.ID] += 1.0 / float64(k+rank+1)
		chunks[c.ID] = c
	}

	result := make([]scoredChunk, 0, len(scores))
	for id, sc := range scores {
		result = append(result, scoredChunk{chunk: chunks[id], score: sc})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].score > result[j].score
	})

	return result
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Source, &c.Content); err != nil {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// float32ToBytes converts a float32 slice to little-endian bytes.
func float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32 converts little-endian bytes back to a float32 slice.
func bytesToFloat32(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
