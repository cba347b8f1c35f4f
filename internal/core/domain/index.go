package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// indexNamespace scopes content-derived index IDs.
var indexNamespace = uuid.MustParse("6f1c3a52-9d0e-4f7b-8a21-3c5d7e9b0f14")

// Metric is the similarity function fixed for one index.
type Metric uint32

const (
	// MetricCosine scores by cosine similarity over L2-normalised vectors.
	MetricCosine Metric = 0

	// MetricEuclidean scores by negative Euclidean distance.
	MetricEuclidean Metric = 1
)

// ParseMetric converts a configuration value into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "", "cosine":
		return MetricCosine, nil
	case "euclidean", "l2":
		return MetricEuclidean, nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", ErrConfig, s)
	}
}

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricEuclidean
}

// String returns the configuration name of the metric.
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricEuclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("metric(%d)", uint32(m))
	}
}

// Manifest describes a persisted index.
type Manifest struct {
	// ID is derived from the index contents; identical builds share it.
	ID string

	// Metric is the similarity function the index was built for.
	Metric Metric

	// Dimension is the vector length. Zero for an empty index.
	Dimension int

	// Count is the number of vectors (and metadata records).
	Count int
}

// Index is the pair of vectors and aligned metadata produced by one build.
// Vectors holds Count*Dimension values; vector i describes Meta[i].
type Index struct {
	Manifest Manifest
	Vectors  []float32
	Meta     []ChunkMeta
}

// Vector returns the i-th vector slot.
func (ix *Index) Vector(i int) []float32 {
	d := ix.Manifest.Dimension
	return ix.Vectors[i*d : (i+1)*d]
}

// Verify checks the vector/metadata alignment invariants.
func (ix *Index) Verify() error {
	m := ix.Manifest
	if !m.Metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %d", ErrIndexCorrupt, uint32(m.Metric))
	}
	if len(ix.Meta) != m.Count {
		return fmt.Errorf("%w: metadata count %d does not match vector count %d",
			ErrIndexCorrupt, len(ix.Meta), m.Count)
	}
	if m.Count > 0 && m.Dimension <= 0 {
		return fmt.Errorf("%w: non-empty index with dimension %d", ErrIndexCorrupt, m.Dimension)
	}
	if len(ix.Vectors) != m.Count*m.Dimension {
		return fmt.Errorf("%w: vector data holds %d values, want %d",
			ErrIndexCorrupt, len(ix.Vectors), m.Count*m.Dimension)
	}
	for i := range ix.Meta {
		if ix.Meta[i].ChunkIdx != i {
			return fmt.Errorf("%w: record %d has chunk_idx %d", ErrIndexCorrupt, i, ix.Meta[i].ChunkIdx)
		}
	}
	return nil
}

// ContentID derives a stable ID from everything that is persisted, so
// identical builds share it and any change to a vector or record alters it.
func (ix *Index) ContentID() string {
	h := sha256.New()
	var buf [8]byte
	putUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putString := func(s string) {
		putUint(uint64(len(s)))
		h.Write([]byte(s))
	}

	putUint(uint64(ix.Manifest.Metric))
	putUint(uint64(ix.Manifest.Dimension))
	putUint(uint64(ix.Manifest.Count))
	for _, v := range ix.Vectors {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
		h.Write(buf[:4])
	}
	for _, m := range ix.Meta {
		putString(m.SourcePath)
		putUint(uint64(m.ChunkIdx))
		putUint(uint64(m.FileChunkIdx))
		putString(m.Text)
	}
	return uuid.NewSHA1(indexNamespace, h.Sum(nil)).String()
}

// VerifyID checks that the vectors and metadata are the ones the manifest
// ID was derived from. An index without an ID is not checked.
func (ix *Index) VerifyID() error {
	if ix.Manifest.ID == "" {
		return nil
	}
	if got := ix.ContentID(); got != ix.Manifest.ID {
		return fmt.Errorf("%w: vectors and metadata come from different builds (manifest %s, content %s)",
			ErrIndexCorrupt, ix.Manifest.ID, got)
	}
	return nil
}
