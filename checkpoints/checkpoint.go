// Package checkpoints persists training state between epochs and runs.
// The core calls Save after each epoch and Load before resuming; a missing
// checkpoint on resume is reported through ErrNotFound and is non-fatal by
// contract.
package checkpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ErrNotFound marks a checkpoint that does not exist. Resume paths log it
// and proceed from scratch.
var ErrNotFound = errors.New("checkpoint not found")

// Format defines the serialization format.
type Format int

const (
	FormatJSON Format = iota
	FormatJSONGzip
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "JSON"
	case FormatJSONGzip:
		return "JSONGzip"
	default:
		return "Unknown"
	}
}

// extension returns the file extension for the format.
func (f Format) extension() string {
	if f == FormatJSONGzip {
		return ".json.gz"
	}
	return ".json"
}

// Checkpoint captures the training state persisted between epochs: the
// epoch counter, the best validation recall seen so far, and an opaque
// model state blob produced by the model's Snapshotter capability.
type Checkpoint struct {
	Epoch      int      `json:"epoch"`
	BestRecall float64  `json:"best_recall"`
	ModelState []byte   `json:"model_state,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

// Metadata contains checkpoint metadata.
type Metadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// Saver handles saving and loading checkpoints in a given format.
type Saver struct {
	format Format
}

// NewSaver creates a checkpoint saver for the specified format.
func NewSaver(format Format) *Saver {
	return &Saver{format: format}
}

// Save writes a checkpoint to path.
func (s *Saver) Save(checkpoint *Checkpoint, path string) error {
	if checkpoint.Metadata.Framework == "" {
		checkpoint.Metadata.Framework = "go-activelearn"
		checkpoint.Metadata.Version = "1.0.0"
		checkpoint.Metadata.CreatedAt = time.Now()
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %v", err)
	}
	defer file.Close()

	var w io.Writer = file
	var gz *gzip.Writer
	if s.format == FormatJSONGzip {
		gz = gzip.NewWriter(file)
		w = gz
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish compressed checkpoint: %v", err)
		}
	}

	return nil
}

// Load reads a checkpoint from path. A missing file yields ErrNotFound.
func (s *Saver) Load(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %v", err)
	}
	defer file.Close()

	var r io.Reader = file
	if s.format == FormatJSONGzip {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed checkpoint: %v", err)
		}
		defer gz.Close()
		r = gz
	}

	var checkpoint Checkpoint
	if err := json.NewDecoder(r).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}

	return &checkpoint, nil
}

// Store manages the checkpoint files of one named experiment under a root
// directory: a rolling latest checkpoint plus a best copy updated whenever
// the caller reports an improvement.
type Store struct {
	dir   string
	saver *Saver
}

// NewStore creates a Store rooted at root/name, creating the directory as
// needed.
func NewStore(root, name string, format Format) (*Store, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %v", err)
	}
	return &Store{
		dir:   dir,
		saver: NewSaver(format),
	}, nil
}

// Dir returns the experiment's checkpoint directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the rolling checkpoint and, when isBest, copies it to the
// best-model file.
func (s *Store) Save(checkpoint *Checkpoint, isBest bool) error {
	path := filepath.Join(s.dir, "checkpoint"+s.saver.format.extension())
	if err := s.saver.Save(checkpoint, path); err != nil {
		return err
	}

	if isBest {
		best := filepath.Join(s.dir, "model_best"+s.saver.format.extension())
		if err := copyFile(path, best); err != nil {
			return fmt.Errorf("failed to copy best checkpoint: %v", err)
		}
	}
	return nil
}

// LoadBest reads the best-model checkpoint. ErrNotFound when none exists.
func (s *Store) LoadBest() (*Checkpoint, error) {
	return s.saver.Load(filepath.Join(s.dir, "model_best"+s.saver.format.extension()))
}

// LoadLatest reads the rolling checkpoint. ErrNotFound when none exists.
func (s *Store) LoadLatest() (*Checkpoint, error) {
	return s.saver.Load(filepath.Join(s.dir, "checkpoint"+s.saver.format.extension()))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
