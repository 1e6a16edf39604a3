package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/viant/imgsim/vector"
)

const (
	// VectorsFile holds the dense float32 matrix.
	VectorsFile = "vectors.bin"
	// LabelsFile holds the ordered label list and store metadata.
	LabelsFile = "labels.msgpack"

	vecMagic      = "IMXV"
	vecVersion    = 1
	vecHeaderSize = 32
	labelsVersion = 1
)

// vectors.bin layout: magic[4] version[1] reserved[3] rows[u32] dim[u32]
// build[16], then rows*dim little-endian float32 values.
type vectorsHeader struct {
	rows    int
	dim     int
	buildID string
}

type labelFile struct {
	Version   int       `msgpack:"v"`
	BuildID   string    `msgpack:"build"`
	Provider  string    `msgpack:"provider"`
	Dimension int       `msgpack:"dim"`
	CreatedAt time.Time `msgpack:"created"`
	Labels    []string  `msgpack:"labels"`
}

// Save writes the store as two artifacts under dir, creating dir if needed.
// Each artifact is written to a temporary file and renamed into place, the
// vector matrix first and the labels strictly after. Both carry one build id
// so a pair from different saves never loads.
//
// A store whose BuildID is not a UUID is written under a freshly generated
// id, so the loaded store reports that id rather than the in-memory one.
// Stores produced by builder.Build always carry a UUID.
func Save(store *Store, dir string) error {
	if store == nil {
		return errors.Wrap(ErrInvalidArgument, "nil store")
	}
	if err := Validate(store).Err(); err != nil {
		return err
	}
	id, err := uuid.Parse(store.meta.BuildID)
	if err != nil {
		id = uuid.New()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(ErrIO, "create %s: %v", dir, err)
	}
	err = writeAtomic(dir, VectorsFile, func(w io.Writer) error {
		header := make([]byte, vecHeaderSize)
		copy(header, vecMagic)
		header[4] = vecVersion
		binary.LittleEndian.PutUint32(header[8:12], uint32(store.Len()))
		binary.LittleEndian.PutUint32(header[12:16], uint32(store.dim))
		copy(header[16:32], id[:])
		if _, err := w.Write(header); err != nil {
			return err
		}
		buf := make([]byte, 0, store.dim*4)
		for i := 0; i < store.Len(); i++ {
			buf = vector.AppendEmbedding(buf[:0], store.Row(i))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	created := store.meta.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return writeAtomic(dir, LabelsFile, func(w io.Writer) error {
		return msgpack.NewEncoder(w).Encode(&labelFile{
			Version:   labelsVersion,
			BuildID:   id.String(),
			Provider:  store.meta.Provider,
			Dimension: store.dim,
			CreatedAt: created,
			Labels:    store.labels,
		})
	})
}

// Load reads and cross-checks both artifacts under dir. It never returns a
// store whose row and label counts disagree or whose matrix holds NaN or Inf.
func Load(dir string) (*Store, error) {
	a, err := readArtifacts(dir)
	if err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	if err := Validate(store).Err(); err != nil {
		return nil, err
	}
	return store, nil
}

// ValidateDir inspects the artifacts under dir without installing them
// anywhere. The report is filled as far as the artifacts could be read; the
// error is the one Load would return.
func ValidateDir(dir string) (Report, error) {
	a, err := readArtifacts(dir)
	if err == nil {
		err = a.check()
	}
	if err == nil {
		var store *Store
		if store, err = a.store(); err == nil {
			r := Validate(store)
			return r, r.Err()
		}
	}
	r := Report{Problem: err.Error()}
	if a != nil {
		r.Rows, r.Dimension, r.BuildID = a.header.rows, a.header.dim, a.header.buildID
		if a.labels != nil {
			r.Labels = len(a.labels.Labels)
			r.Provider = a.labels.Provider
		}
	}
	return r, err
}

type artifacts struct {
	header vectorsHeader
	matrix []float32
	labels *labelFile
}

// readArtifacts parses both files. On failure it returns whatever was parsed
// so far together with the error.
func readArtifacts(dir string) (*artifacts, error) {
	a := &artifacts{}
	header, matrix, err := readVectors(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, err
	}
	a.header, a.matrix = header, matrix
	labels, err := readLabels(filepath.Join(dir, LabelsFile))
	if err != nil {
		return a, err
	}
	a.labels = labels
	return a, nil
}

func (a *artifacts) check() error {
	switch {
	case a.header.rows != len(a.labels.Labels):
		return errors.Wrapf(ErrCorruptIndex, "row count %d != label count %d", a.header.rows, len(a.labels.Labels))
	case a.header.buildID != a.labels.BuildID:
		return errors.Wrapf(ErrCorruptIndex, "artifacts from different builds: %s vs %s", a.header.buildID, a.labels.BuildID)
	case a.header.dim != a.labels.Dimension:
		return errors.Wrapf(ErrCorruptIndex, "dimension %d != recorded dimension %d", a.header.dim, a.labels.Dimension)
	}
	return nil
}

func (a *artifacts) store() (*Store, error) {
	return NewStore(a.header.dim, a.matrix, a.labels.Labels, Meta{
		BuildID:   a.labels.BuildID,
		Provider:  a.labels.Provider,
		CreatedAt: a.labels.CreatedAt,
	})
}

func readVectors(path string) (vectorsHeader, []float32, error) {
	var h vectorsHeader
	f, err := os.Open(path)
	if err != nil {
		return h, nil, openError(path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return h, nil, errors.Wrapf(ErrIO, "stat %s: %v", path, err)
	}
	raw := make([]byte, vecHeaderSize)
	if _, err := io.ReadFull(f, raw); err != nil {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: short header", path)
	}
	if !bytes.Equal(raw[:4], []byte(vecMagic)) {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: bad magic %q", path, raw[:4])
	}
	if raw[4] != vecVersion {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: unsupported version %d", path, raw[4])
	}
	h.rows = int(binary.LittleEndian.Uint32(raw[8:12]))
	h.dim = int(binary.LittleEndian.Uint32(raw[12:16]))
	id, err := uuid.FromBytes(raw[16:32])
	if err != nil {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: bad build id", path)
	}
	h.buildID = id.String()
	if h.rows > 0 && h.dim == 0 {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: %d rows with zero dimension", path, h.rows)
	}
	if h.dim > 0 && uint64(h.rows) > uint64(info.Size()-vecHeaderSize)/(4*uint64(h.dim)) {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: size %d too small for %d×%d", path, info.Size(), h.rows, h.dim)
	}
	bodySize := int64(h.rows) * int64(h.dim) * 4
	if info.Size() != vecHeaderSize+bodySize {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: size %d, want %d for %d×%d", path, info.Size(), vecHeaderSize+bodySize, h.rows, h.dim)
	}
	body := make([]byte, bodySize)
	if _, err := io.ReadFull(f, body); err != nil {
		return h, nil, errors.Wrapf(ErrCorruptIndex, "%s: truncated matrix", path)
	}
	matrix := make([]float32, h.rows*h.dim)
	if err := vector.DecodeInto(matrix, body); err != nil {
		return h, nil, errors.Wrap(ErrCorruptIndex, err.Error())
	}
	return h, matrix, nil
}

func readLabels(path string) (*labelFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()
	lf := &labelFile{}
	if err := msgpack.NewDecoder(bufio.NewReader(f)).Decode(lf); err != nil {
		return nil, errors.Wrapf(ErrCorruptIndex, "%s: %v", path, err)
	}
	if lf.Version != labelsVersion {
		return nil, errors.Wrapf(ErrCorruptIndex, "%s: unsupported version %d", path, lf.Version)
	}
	return lf, nil
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(ErrNotFound, "%s", path)
	}
	return errors.Wrapf(ErrIO, "open %s: %v", path, err)
}

func writeAtomic(dir, name string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return errors.Wrapf(ErrIO, "create temp for %s: %v", name, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	w := bufio.NewWriter(tmp)
	if err = write(w); err != nil {
		return errors.Wrapf(ErrIO, "write %s: %v", name, err)
	}
	if err = w.Flush(); err != nil {
		return errors.Wrapf(ErrIO, "flush %s: %v", name, err)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(ErrIO, "sync %s: %v", name, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(ErrIO, "close %s: %v", name, err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return errors.Wrapf(ErrIO, "rename %s: %v", name, err)
	}
	return nil
}
