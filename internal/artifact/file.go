package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Format: magic (8), dimensions (u32), count (u32), id, model (u32 length + bytes each),
// created-at unix nanos (i64), then per entry: label length (u32), label bytes,
// dimensions float32 values. All integers and floats are little-endian.
var magic = [8]byte{'I', 'N', 'T', 'I', 'D', 'X', '0', '1'}

const (
	maxStringLen = 1 << 20
	maxEntries   = 1 << 26
	maxDims      = 1 << 16
	// Entries preallocated before any of them has been read.
	maxPrealloc = 4096
)

// Save writes the artifact to path atomically. The parent directory is created if needed;
// a partially written file never replaces an existing artifact.
func Save(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	if err := encode(w, a); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	a, err := decode(bufio.NewReader(f), info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func encode(w io.Writer, a *Artifact) error {
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(a.Dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(a.Vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	if err := writeString(w, a.ID); err != nil {
		return fmt.Errorf("write id: %w", err)
	}
	if err := writeString(w, a.Model); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	var created int64
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UnixNano()
	}
	if err := binary.Write(w, binary.LittleEndian, created); err != nil {
		return fmt.Errorf("write created_at: %w", err)
	}
	buf := make([]byte, a.Dimensions*4)
	for i, label := range a.Labels {
		if err := writeString(w, label); err != nil {
			return fmt.Errorf("write label %d: %w", i, err)
		}
		for j, v := range a.Vectors[i] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// decode reads an artifact from r. size is the total input length used to reject
// headers claiming more entries than the input can hold; pass -1 when unknown.
func decode(r io.Reader, size int64) (*Artifact, error) {
	var m [8]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, fmt.Errorf("%w: read magic: %v", ErrCorruptArtifact, err)
	}
	if m != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptArtifact, m[:])
	}
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("%w: read dimensions: %v", ErrCorruptArtifact, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: read count: %v", ErrCorruptArtifact, err)
	}
	if dim == 0 || dim > maxDims || n > maxEntries {
		return nil, fmt.Errorf("%w: implausible header (dimensions=%d, count=%d)", ErrCorruptArtifact, dim, n)
	}
	if size >= 0 && uint64(n)*(4+uint64(dim)*4) > uint64(size) {
		return nil, fmt.Errorf("%w: count %d exceeds input size %d", ErrCorruptArtifact, n, size)
	}
	a := &Artifact{Dimensions: int(dim)}
	var err error
	if a.ID, err = readString(r); err != nil {
		return nil, fmt.Errorf("%w: read id: %v", ErrCorruptArtifact, err)
	}
	if a.Model, err = readString(r); err != nil {
		return nil, fmt.Errorf("%w: read model: %v", ErrCorruptArtifact, err)
	}
	var created int64
	if err := binary.Read(r, binary.LittleEndian, &created); err != nil {
		return nil, fmt.Errorf("%w: read created_at: %v", ErrCorruptArtifact, err)
	}
	if created != 0 {
		a.CreatedAt = time.Unix(0, created).UTC()
	}

	prealloc := min(n, maxPrealloc)
	a.Labels = make([]string, 0, prealloc)
	a.Vectors = make([][]float32, 0, prealloc)
	buf := make([]byte, dim*4)
	for i := uint32(0); i < n; i++ {
		label, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read label %d: %v", ErrCorruptArtifact, i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: read vector %d: %v", ErrCorruptArtifact, i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		a.Labels = append(a.Labels, label)
		a.Vectors = append(a.Vectors, vec)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("string of %d bytes exceeds limit", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
