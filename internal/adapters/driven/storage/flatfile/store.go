// Package flatfile persists an index as two sibling files: a binary vector
// file and a JSON metadata file whose i-th entry describes the i-th vector.
package flatfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Vector file layout, little-endian:
//
//	magic     [8]byte "SRAGVEC1"
//	version   uint32
//	metric    uint32
//	dimension uint32
//	count     uint64
//	id        [16]byte
//	data      [count*dimension]float32
const (
	magic      = "SRAGVEC1"
	version    = uint32(1)
	headerSize = 8 + 4 + 4 + 4 + 8 + 16
)

// Store reads and writes the index file pair.
type Store struct {
	vectorPath string
	metaPath   string
}

// New creates a store for the given vector and metadata paths.
// An empty metaPath uses "<vectorPath>.meta.json".
func New(vectorPath, metaPath string) *Store {
	if metaPath == "" {
		metaPath = domain.IndexSettings{Path: vectorPath}.ResolvedMetaPath()
	}
	return &Store{vectorPath: vectorPath, metaPath: metaPath}
}

// Location returns the vector file path.
func (s *Store) Location() string {
	return s.vectorPath
}

// MetaPath returns the metadata file path.
func (s *Store) MetaPath() string {
	return s.metaPath
}

// Save writes both files to temporaries and renames them into place.
func (s *Store) Save(ctx context.Context, index *domain.Index) error {
	if err := index.Verify(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	for _, p := range []string{s.vectorPath, s.metaPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create index directory: %w", err)
		}
	}

	vecTmp, err := writeTemp(s.vectorPath, func(w io.Writer) error {
		return writeVectors(w, index)
	})
	if err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	defer os.Remove(vecTmp) //nolint:errcheck

	metaTmp, err := writeTemp(s.metaPath, func(w io.Writer) error {
		meta := index.Meta
		if meta == nil {
			meta = []domain.ChunkMeta{}
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(meta)
	})
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	defer os.Remove(metaTmp) //nolint:errcheck

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(vecTmp, s.vectorPath); err != nil {
		return fmt.Errorf("install vectors: %w", err)
	}
	if err := os.Rename(metaTmp, s.metaPath); err != nil {
		return fmt.Errorf("install metadata: %w", err)
	}
	return nil
}

// Load reads both files and verifies that they pair up.
func (s *Store) Load(ctx context.Context) (*domain.Index, error) {
	index, err := s.readVectors()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata %s: %w", domain.ErrIndexCorrupt, s.metaPath, err)
	}
	if err := json.Unmarshal(data, &index.Meta); err != nil {
		return nil, fmt.Errorf("%w: parse metadata %s: %w", domain.ErrIndexCorrupt, s.metaPath, err)
	}

	if err := index.Verify(); err != nil {
		return nil, err
	}
	if err := index.VerifyID(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.metaPath, err)
	}
	return index, nil
}

// Exists reports whether the vector file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.vectorPath)
	return err == nil
}

func (s *Store) readVectors() (*domain.Index, error) {
	f, err := os.Open(s.vectorPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: vector file %s not found", domain.ErrIndexCorrupt, s.vectorPath)
		}
		return nil, fmt.Errorf("%w: open vectors: %w", domain.ErrIndexCorrupt, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short vector header: %w", domain.ErrIndexCorrupt, err)
	}
	if string(header[:8]) != magic {
		return nil, fmt.Errorf("%w: bad magic in %s", domain.ErrIndexCorrupt, s.vectorPath)
	}

	le := binary.LittleEndian
	if v := le.Uint32(header[8:]); v != version {
		return nil, fmt.Errorf("%w: unsupported format version %d", domain.ErrIndexCorrupt, v)
	}
	metric := domain.Metric(le.Uint32(header[12:]))
	dim := int(le.Uint32(header[16:]))
	count := le.Uint64(header[20:])

	id, err := uuid.FromBytes(header[28:44])
	if err != nil {
		return nil, fmt.Errorf("%w: bad index id: %w", domain.ErrIndexCorrupt, err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat vectors: %w", domain.ErrIndexCorrupt, err)
	}
	want := uint64(dim) * count * 4
	if dim > 0 && count > 0 && want/count/4 != uint64(dim) {
		return nil, fmt.Errorf("%w: header overflows", domain.ErrIndexCorrupt)
	}
	if uint64(info.Size()-headerSize) != want {
		return nil, fmt.Errorf("%w: vector data is %d bytes, header promises %d",
			domain.ErrIndexCorrupt, info.Size()-headerSize, want)
	}

	raw := make([]byte, want)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: read vector data: %w", domain.ErrIndexCorrupt, err)
	}
	vectors := make([]float32, len(raw)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
	}

	manifest := domain.Manifest{
		Metric:    metric,
		Dimension: dim,
		Count:     int(count),
	}
	if id != uuid.Nil {
		manifest.ID = id.String()
	}

	return &domain.Index{Manifest: manifest, Vectors: vectors}, nil
}

func writeVectors(w io.Writer, index *domain.Index) error {
	var id uuid.UUID
	if index.Manifest.ID != "" {
		parsed, err := uuid.Parse(index.Manifest.ID)
		if err != nil {
			return fmt.Errorf("index id %q: %w", index.Manifest.ID, err)
		}
		id = parsed
	}

	le := binary.LittleEndian
	header := make([]byte, 0, headerSize)
	header = append(header, magic...)
	header = le.AppendUint32(header, version)
	header = le.AppendUint32(header, uint32(index.Manifest.Metric))
	header = le.AppendUint32(header, uint32(index.Manifest.Dimension))
	header = le.AppendUint64(header, uint64(index.Manifest.Count))
	header = append(header, id[:]...)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return err
	}
	var buf [4]byte
	for _, f := range index.Vectors {
		le.PutUint32(buf[:], math.Float32bits(f))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeTemp writes a sibling temporary of path and returns its name.
func writeTemp(path string, fill func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()

	if err := fill(f); err != nil {
		f.Close()
		os.Remove(name) //nolint:errcheck
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name) //nolint:errcheck
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name) //nolint:errcheck
		return "", err
	}
	return name, nil
}
