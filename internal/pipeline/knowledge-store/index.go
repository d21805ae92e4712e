// internal/pipeline/knowledge-store/index.go
package knowledgestore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrDimensionMismatch = errors.New("DIMENSION_MISMATCH")
	ErrCorruptIndex      = errors.New("CORRUPT_INDEX")
)

var indexMagic = [8]byte{'C', 'D', 'P', 'F', 'L', 'A', 'T', '1'}

// Neighbor is one search hit: the row position and its inner-product score.
type Neighbor struct {
	Index int
	Score float32
}

// FlatIndex is an exhaustive inner-product index over L2-normalised rows.
// It is immutable once published to a Store snapshot.
type FlatIndex struct {
	dim  int
	data []float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (ix *FlatIndex) Dim() int { return ix.dim }

func (ix *FlatIndex) Len() int {
	if ix == nil || ix.dim == 0 {
		return 0
	}
	return len(ix.data) / ix.dim
}

// Add normalises and appends each vector.
func (ix *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("%w: row %d has %d, want %d", ErrDimensionMismatch, i, len(v), ix.dim)
		}
		ix.data = append(ix.data, Normalize(v)...)
	}
	return nil
}

func (ix *FlatIndex) row(i int) []float32 {
	return ix.data[i*ix.dim : (i+1)*ix.dim]
}

// Search returns up to k rows ordered by descending score. Ties keep row order.
// query is expected to be normalised already.
func (ix *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	n := ix.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		hits[i] = Neighbor{Index: i, Score: dot(ix.row(i), query)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:k], nil
}

// MarshalBinary writes magic, dim, count and the little-endian float32 rows.
func (ix *FlatIndex) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(indexMagic) + 8 + 4*len(ix.data))
	buf.Write(indexMagic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint32(ix.dim)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(ix.Len())); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, ix.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ix *FlatIndex) UnmarshalBinary(raw []byte) error {
	if len(raw) < len(indexMagic)+8 || !bytes.Equal(raw[:len(indexMagic)], indexMagic[:]) {
		return fmt.Errorf("%w: bad header", ErrCorruptIndex)
	}
	r := bytes.NewReader(raw[len(indexMagic):])
	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if uint64(r.Len()) != uint64(dim)*uint64(count)*4 {
		return fmt.Errorf("%w: expected %d vectors of dim %d, got %d bytes", ErrCorruptIndex, count, dim, r.Len())
	}
	data := make([]float32, int(dim)*int(count))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	ix.dim = int(dim)
	ix.data = data
	return nil
}

// Normalize returns an L2-normalised copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
