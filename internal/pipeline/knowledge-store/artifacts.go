// internal/pipeline/knowledge-store/artifacts.go
package knowledgestore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"

	IndexFileName  = "index.bin"
	ChunksFileName = "chunks.json"
)

var (
	ErrArtifactsNotFound = errors.New("ARTIFACTS_NOT_FOUND")
	ErrArtifactsCorrupt  = errors.New("ARTIFACTS_CORRUPT")
)

// IndexArtifacts is the persisted pair: the vector index and its parallel chunk list.
type IndexArtifacts struct {
	Generation string
	CreatedAt  time.Time
	Index      *FlatIndex
	Chunks     []DocumentChunk
}

func (a *IndexArtifacts) validate() error {
	if a.Index == nil {
		return fmt.Errorf("%w: missing index", ErrArtifactsCorrupt)
	}
	if a.Index.Len() != len(a.Chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", ErrArtifactsCorrupt, a.Index.Len(), len(a.Chunks))
	}
	return nil
}

// ArtifactStore persists and restores index artifacts as one unit.
// Load returns ErrArtifactsNotFound when no complete pair exists.
type ArtifactStore interface {
	Save(ctx context.Context, a *IndexArtifacts) error
	Load(ctx context.Context) (*IndexArtifacts, error)
	Backend() string
}

// indexFileMagic prefixes index.bin, followed by the generation id so the
// file can be matched against chunks.json.
var indexFileMagic = [8]byte{'C', 'D', 'P', 'G', 'E', 'N', '0', '1'}

type chunkFile struct {
	Generation  string          `json:"generation"`
	CreatedAt   time.Time       `json:"createdAt"`
	Dimension   int             `json:"dimension"`
	VectorCount int             `json:"vectorCount"`
	Chunks      []DocumentChunk `json:"chunks"`
}

// ==========================
// File backend
// ==========================

// FileArtifacts keeps index.bin and chunks.json side by side in Dir. Both
// carry the generation id; a pair from different generations is not loaded.
type FileArtifacts struct {
	Dir string
}

func NewFileArtifacts(dir string) *FileArtifacts {
	return &FileArtifacts{Dir: dir}
}

func (f *FileArtifacts) Backend() string { return BackendFile }

func (f *FileArtifacts) IndexPath() string  { return filepath.Join(f.Dir, IndexFileName) }
func (f *FileArtifacts) ChunksPath() string { return filepath.Join(f.Dir, ChunksFileName) }

// Save writes both files through temp files and renames. chunks.json is
// renamed last, so a watcher keyed on it sees a complete pair.
func (f *FileArtifacts) Save(ctx context.Context, a *IndexArtifacts) error {
	if err := a.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	blob, err := encodeIndexFile(a.Generation, a.Index)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(chunkFile{
		Generation:  a.Generation,
		CreatedAt:   a.CreatedAt,
		Dimension:   a.Index.Dim(),
		VectorCount: a.Index.Len(),
		Chunks:      a.Chunks,
	})
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeAtomic(f.IndexPath(), blob); err != nil {
		return err
	}
	return writeAtomic(f.ChunksPath(), meta)
}

func (f *FileArtifacts) Load(ctx context.Context) (*IndexArtifacts, error) {
	indexExists := fileExists(f.IndexPath())
	chunksExists := fileExists(f.ChunksPath())
	if !indexExists || !chunksExists {
		return nil, ErrArtifactsNotFound
	}

	blob, err := os.ReadFile(f.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	raw, err := os.ReadFile(f.ChunksPath())
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	var cf chunkFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactsCorrupt, err)
	}
	generation, ix, err := decodeIndexFile(blob)
	if err != nil {
		return nil, err
	}
	if generation != cf.Generation {
		return nil, fmt.Errorf("%w: index generation %q does not match chunks generation %q",
			ErrArtifactsNotFound, generation, cf.Generation)
	}

	a := &IndexArtifacts{
		Generation: cf.Generation,
		CreatedAt:  cf.CreatedAt,
		Index:      ix,
		Chunks:     cf.Chunks,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func encodeIndexFile(generation string, ix *FlatIndex) ([]byte, error) {
	if len(generation) > 0xFFFF {
		return nil, fmt.Errorf("%w: generation id too long", ErrArtifactsCorrupt)
	}
	blob, err := ix.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(indexFileMagic) + 2 + len(generation) + len(blob))
	buf.Write(indexFileMagic[:])
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(generation)))
	buf.Write(n[:])
	buf.WriteString(generation)
	buf.Write(blob)
	return buf.Bytes(), nil
}

func decodeIndexFile(raw []byte) (string, *FlatIndex, error) {
	head := len(indexFileMagic) + 2
	if len(raw) < head || !bytes.Equal(raw[:len(indexFileMagic)], indexFileMagic[:]) {
		return "", nil, fmt.Errorf("%w: bad index file header", ErrArtifactsCorrupt)
	}
	n := int(binary.LittleEndian.Uint16(raw[len(indexFileMagic):head]))
	if len(raw) < head+n {
		return "", nil, fmt.Errorf("%w: truncated generation id", ErrArtifactsCorrupt)
	}
	ix := &FlatIndex{}
	if err := ix.UnmarshalBinary(raw[head+n:]); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrArtifactsCorrupt, err)
	}
	return string(raw[head : head+n]), ix, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ==========================
// Postgres backend
// ==========================

// PostgresArtifacts stores each generation as one row of knowledge_artifacts,
// so the blob and the chunk list are always written and read together.
type PostgresArtifacts struct {
	db *sql.DB
}

func NewPostgresArtifacts(db *sql.DB) *PostgresArtifacts {
	return &PostgresArtifacts{db: db}
}

func (p *PostgresArtifacts) Backend() string { return BackendPostgres }

func (p *PostgresArtifacts) Save(ctx context.Context, a *IndexArtifacts) error {
	if err := a.validate(); err != nil {
		return err
	}
	blob, err := a.Index.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	chunks, err := json.Marshal(a.Chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin artifact tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO knowledge_artifacts (generation, dimension, vector_count, index_blob, chunks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.Generation, a.Index.Dim(), a.Index.Len(), blob, chunks, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifacts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_artifacts WHERE generation <> $1`, a.Generation); err != nil {
		return fmt.Errorf("prune artifacts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifacts: %w", err)
	}
	return nil
}

func (p *PostgresArtifacts) Load(ctx context.Context) (*IndexArtifacts, error) {
	var (
		a      IndexArtifacts
		blob   []byte
		chunks []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT generation, index_blob, chunks, created_at
		FROM knowledge_artifacts
		ORDER BY created_at DESC
		LIMIT 1`,
	).Scan(&a.Generation, &blob, &chunks, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArtifactsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}

	a.Index = &FlatIndex{}
	if err := a.Index.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactsCorrupt, err)
	}
	if err := json.Unmarshal(chunks, &a.Chunks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactsCorrupt, err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
