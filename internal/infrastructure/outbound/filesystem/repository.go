package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/domain/network"
	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

var _ capture.Repository = (*CaptureRepository)(nil)

// CaptureRepository stores captures under <root>/captures/<id>/, one
// directory per capture with a capture.yaml manifest beside its pass files.
type CaptureRepository struct {
	rootDir     string
	capturesDir string
}

// NewCaptureRepository creates a repository rooted at rootDir.
func NewCaptureRepository(rootDir string) (*CaptureRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &CaptureRepository{
		rootDir:     absRoot,
		capturesDir: filepath.Join(absRoot, "captures"),
	}, nil
}

// CapturesDir returns the directory holding one subdirectory per capture.
func (r *CaptureRepository) CapturesDir() string {
	return r.capturesDir
}

// LoadAll loads every capture directory. A missing captures directory
// yields no captures. Hidden entries are skipped.
func (r *CaptureRepository) LoadAll(ctx context.Context) ([]*capture.Capture, error) {
	entries, err := os.ReadDir(r.capturesDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read captures directory: %w", err)
	}

	var captures []*capture.Capture
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		c, err := r.loadDir(filepath.Join(r.capturesDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to load capture %s: %w", e.Name(), err)
		}
		captures = append(captures, c)
	}
	return captures, nil
}

// LoadByID loads a single capture by its ID.
func (r *CaptureRepository) LoadByID(_ context.Context, id string) (*capture.Capture, error) {
	if err := capture.ValidateID(id); err != nil {
		return nil, err
	}
	dir := filepath.Join(r.capturesDir, id)
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); errors.Is(err, fs.ErrNotExist) {
		return nil, capture.ErrNotFound
	}
	c, err := r.loadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load capture %s: %w", id, err)
	}
	return c, nil
}

func (r *CaptureRepository) loadDir(dir string) (*capture.Capture, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m yamlCapture
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.ID == "" {
		m.ID = filepath.Base(dir)
	}
	if err := capture.ValidateID(m.ID); err != nil {
		return nil, err
	}
	if m.ID != filepath.Base(dir) {
		return nil, fmt.Errorf("manifest id %q does not match directory %q", m.ID, filepath.Base(dir))
	}
	if len(m.Passes) == 0 {
		return nil, fmt.Errorf("capture %q declares no passes", m.ID)
	}

	c := &capture.Capture{
		ID:     m.ID,
		URL:    m.URL,
		Passes: make(map[string]*artifact.RawArtifacts, len(m.Passes)),
		Files:  make(map[string]capture.PassFiles, len(m.Passes)),
	}
	for name, p := range m.Passes {
		if p.Trace == "" {
			return nil, fmt.Errorf("pass %q has no trace file", name)
		}
		events, err := r.readTrace(dir, p.Trace)
		if err != nil {
			return nil, fmt.Errorf("pass %q: %w", name, err)
		}
		var log []network.LogEntry
		if p.DevtoolsLog != "" {
			if log, err = r.readDevtoolsLog(dir, p.DevtoolsLog); err != nil {
				return nil, fmt.Errorf("pass %q: %w", name, err)
			}
		}
		c.Passes[name] = artifact.NewRawArtifacts(name, events, log)
		c.Files[name] = capture.PassFiles{Trace: p.Trace, DevtoolsLog: p.DevtoolsLog}
	}
	return c, nil
}

func (r *CaptureRepository) readTrace(dir, name string) ([]trace.Event, error) {
	data, err := r.readConfined(dir, name)
	if err != nil {
		return nil, err
	}
	var f trace.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse trace %s: %w", name, err)
	}
	return f.Events, nil
}

func (r *CaptureRepository) readDevtoolsLog(dir, name string) ([]network.LogEntry, error) {
	data, err := r.readConfined(dir, name)
	if err != nil {
		return nil, err
	}
	var log []network.LogEntry
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse devtools log %s: %w", name, err)
	}
	if log == nil {
		log = []network.LogEntry{}
	}
	return log, nil
}

// readConfined reads a file named by a manifest, refusing paths that leave
// the capture directory.
func (r *CaptureRepository) readConfined(dir, name string) ([]byte, error) {
	if filepath.IsAbs(name) {
		return nil, fmt.Errorf("absolute path %q is not allowed in a manifest", name)
	}
	path := filepath.Join(dir, name)
	if err := validatePathWithin(dir, path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Save writes the capture into a staging directory and swaps it into place,
// so readers see either the old capture or the new one.
func (r *CaptureRepository) Save(_ context.Context, c *capture.Capture) error {
	if err := capture.ValidateID(c.ID); err != nil {
		return err
	}
	if len(c.Passes) == 0 {
		return fmt.Errorf("capture %q has no passes", c.ID)
	}
	if err := os.MkdirAll(r.capturesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create captures directory: %w", err)
	}
	target := filepath.Join(r.capturesDir, c.ID)
	if err := validatePathWithin(r.capturesDir, target); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(r.capturesDir, ".import-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return fmt.Errorf("failed to set staging permissions: %w", err)
	}

	manifest := yamlCapture{ID: c.ID, URL: c.URL, Passes: make(map[string]yamlPass, len(c.Passes))}
	for _, name := range c.PassNames() {
		if err := capture.ValidateID(name); err != nil {
			return fmt.Errorf("invalid pass name: %w", err)
		}
		raw := c.Passes[name]
		p := yamlPass{Trace: name + ".trace.json"}
		if err := writeJSON(filepath.Join(staging, p.Trace), trace.File{Events: raw.Trace()}); err != nil {
			return err
		}
		if raw.HasDevtoolsLog() {
			p.DevtoolsLog = name + ".devtoolslog.json"
			if err := writeJSON(filepath.Join(staging, p.DevtoolsLog), raw.DevtoolsLog()); err != nil {
				return err
			}
		}
		manifest.Passes[name] = p
	}

	out, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(staging, ManifestName), out); err != nil {
		return err
	}

	return swapDir(staging, target)
}

// Delete removes a capture directory.
func (r *CaptureRepository) Delete(_ context.Context, id string) error {
	if err := capture.ValidateID(id); err != nil {
		return err
	}
	target := filepath.Join(r.capturesDir, id)
	if err := validatePathWithin(r.capturesDir, target); err != nil {
		return err
	}
	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		return capture.ErrNotFound
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to delete capture directory: %w", err)
	}
	return nil
}

// swapDir replaces target with staging. An existing target is moved aside
// first and removed once staging is in place.
func swapDir(staging, target string) error {
	var old string
	if _, err := os.Stat(target); err == nil {
		old = filepath.Join(filepath.Dir(target), ".replaced-"+filepath.Base(staging))
		if err := os.Rename(target, old); err != nil {
			return fmt.Errorf("failed to move existing capture aside: %w", err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if old != "" {
			_ = os.Rename(old, target)
		}
		return fmt.Errorf("failed to move capture into place: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

// validatePathWithin ensures path resolves inside root, following symlinks
// where they exist.
func validatePathWithin(root, path string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		// Not created yet: resolve the parent instead.
		parent, perr := filepath.EvalSymlinks(filepath.Dir(path))
		if perr != nil {
			parent = filepath.Dir(path)
		}
		realPath = filepath.Join(parent, filepath.Base(path))
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal denied: %s is outside %s", path, root)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes content to a temp file then renames it to the target path.
func atomicWriteFile(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".perfaudit-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
