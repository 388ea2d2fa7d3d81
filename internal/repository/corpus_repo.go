package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/liliang-cn/triage/internal/domain"
)

// CorpusRepository handles reference corpus persistence and retrieval
type CorpusRepository struct {
	db *DB
}

// NewCorpusRepository creates a new corpus repository
func NewCorpusRepository(db *DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

// Add stores a reference text. embedding may be nil.
func (r *CorpusRepository) Add(ctx context.Context, corpus domain.Corpus, content string, embedding []float32) (*domain.CorpusEntry, error) {
	entry := &domain.CorpusEntry{
		ID:        uuid.New().String(),
		Corpus:    corpus,
		Content:   content,
		CreatedAt: time.Now(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var blob []byte
	if len(embedding) > 0 {
		blob = encodeEmbedding(embedding)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO corpus_entries (id, corpus, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, string(corpus), content, blob, entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO corpus_fts (content, corpus, entry_id) VALUES (?, ?, ?)
	`, content, string(corpus), entry.ID); err != nil {
		return nil, fmt.Errorf("failed to index entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Search returns up to k entries of corpus ranked by bm25 against query.
// Words are matched on their porter stems. A query without usable words, or
// one that matches nothing, returns the first k entries in insertion order so
// a non-empty corpus always yields references.
func (r *CorpusRepository) Search(ctx context.Context, corpus domain.Corpus, query string, k int) ([]*domain.CorpusEntry, error) {
	if k <= 0 {
		return []*domain.CorpusEntry{}, nil
	}

	match := matchExpression(query)
	if match == "" {
		return r.list(ctx, corpus, k)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.corpus, e.content, e.created_at
		FROM corpus_fts f
		JOIN corpus_entries e ON e.id = f.entry_id
		WHERE corpus_fts MATCH ? AND f.corpus = ?
		ORDER BY bm25(corpus_fts)
		LIMIT ?
	`, match, string(corpus), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search corpus: %w", err)
	}
	entries, err := scanEntries(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return r.list(ctx, corpus, k)
	}
	return entries, nil
}

// SearchByVector returns up to k entries ranked by cosine similarity to the
// query embedding. Entries stored without an embedding are skipped.
func (r *CorpusRepository) SearchByVector(ctx context.Context, corpus domain.Corpus, query []float32, k int) ([]*domain.CorpusEntry, error) {
	if k <= 0 || len(query) == 0 {
		return []*domain.CorpusEntry{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, corpus, content, created_at, embedding
		FROM corpus_entries
		WHERE corpus = ? AND embedding IS NOT NULL
	`, string(corpus))
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		entry *domain.CorpusEntry
		score float64
	}
	var candidates []scored
	for rows.Next() {
		entry := &domain.CorpusEntry{}
		var c string
		var blob []byte
		if err := rows.Scan(&entry.ID, &c, &entry.Content, &entry.CreatedAt, &blob); err != nil {
			return nil, err
		}
		entry.Corpus = domain.Corpus(c)
		candidates = append(candidates, scored{entry, cosine(query, decodeEmbedding(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]*domain.CorpusEntry, len(candidates))
	for i, c := range candidates {
		out[i] = c.entry
	}
	return out, nil
}

// Count returns the number of entries in corpus
func (r *CorpusRepository) Count(ctx context.Context, corpus domain.Corpus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_entries WHERE corpus = ?`, string(corpus)).Scan(&n)
	return n, err
}

// Stats returns the entry count of every corpus, zero for empty ones
func (r *CorpusRepository) Stats(ctx context.Context) (domain.CorpusStats, error) {
	stats := domain.CorpusStats{}
	for _, c := range domain.Corpora() {
		stats[c] = 0
	}

	rows, err := r.db.QueryContext(ctx, `SELECT corpus, COUNT(*) FROM corpus_entries GROUP BY corpus`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		stats[domain.Corpus(c)] = n
	}
	return stats, rows.Err()
}

// Clear deletes every entry of corpus
func (r *CorpusRepository) Clear(ctx context.Context, corpus domain.Corpus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_fts WHERE corpus = ?`, string(corpus)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_entries WHERE corpus = ?`, string(corpus)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CorpusRepository) list(ctx context.Context, corpus domain.Corpus, k int) ([]*domain.CorpusEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, corpus, content, created_at
		FROM corpus_entries WHERE corpus = ?
		ORDER BY rowid ASC
		LIMIT ?
	`, string(corpus), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*domain.CorpusEntry, error) {
	entries := []*domain.CorpusEntry{}
	for rows.Next() {
		entry := &domain.CorpusEntry{}
		var c string
		if err := rows.Scan(&entry.ID, &c, &entry.Content, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Corpus = domain.Corpus(c)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// matchExpression turns free text into an FTS5 query that ORs every word
func matchExpression(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
