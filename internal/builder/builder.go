// Package builder orchestrates site builds: it reads the source document
// and guide files, runs the transformer, and publishes the artifact set
// into the output directory. Every artifact is published atomically, so a
// concurrent reader sees either the previous complete file or the new
// complete file, never a truncated one.
package builder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/guidecraft/guidecraft/internal/errors"
	"github.com/guidecraft/guidecraft/internal/logging"
	"github.com/guidecraft/guidecraft/internal/transform"
)

// Config is the explicit build configuration. No option is read from
// process-global state.
type Config struct {
	SourcePath       string
	GuidesDir        string
	OutputDir        string
	ManifestTemplate string
	SiteName         string
	BaseURL          string
	SourceURL        string
}

// Info describes the outcome of one build attempt.
type Info struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	Duration time.Duration `json:"duration_ns"`
	Skipped  bool          `json:"skipped"`
	Files    int           `json:"files"`
	Error    string        `json:"error,omitempty"`
}

// Builder regenerates the full output from the full input on every run.
// It keeps an input fingerprint between runs so a rebuild triggered by a
// no-op save can be skipped without touching the output directory.
type Builder struct {
	cfg Config
	log logging.Logger

	// now is injectable so tests (and the idempotence guarantee) get a
	// stable timestamp.
	now func() time.Time

	// buildMu serializes builds; stateMu guards the snapshot fields so
	// status reads never block behind a running build.
	buildMu     sync.Mutex
	stateMu     sync.Mutex
	fingerprint uint64
	last        Info
}

// New creates a Builder. The logger may not be nil.
func New(cfg Config, log logging.Logger) *Builder {
	return &Builder{cfg: cfg, log: log.WithComponent("builder"), now: time.Now}
}

// LastBuild returns the outcome of the most recent build attempt.
func (b *Builder) LastBuild() Info {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.last
}

func (b *Builder) record(info Info) {
	b.stateMu.Lock()
	b.last = info
	b.stateMu.Unlock()
}

func (b *Builder) lastFingerprint() uint64 {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.fingerprint
}

func (b *Builder) setFingerprint(fp uint64) {
	b.stateMu.Lock()
	b.fingerprint = fp
	b.stateMu.Unlock()
}

// Build runs one full build. Failures are reported to the caller with a
// typed kind (NotFound, PermissionDenied, MalformedInput); the previous
// published artifact set is left untouched on failure.
func (b *Builder) Build(ctx context.Context) (Info, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	start := b.now()
	info := Info{ID: uuid.NewString(), Time: start}
	finish := func() Info {
		info.Duration = b.now().Sub(start)
		b.record(info)
		return info
	}

	in, fp, err := b.readInputs()
	if err != nil {
		info.Error = err.Error()
		return finish(), err
	}

	if fp == b.lastFingerprint() && b.outputPresent() {
		info.Skipped = true
		b.log.Debug(ctx, "inputs unchanged, skipping rebuild", "build_id", info.ID)
		return finish(), nil
	}

	result, err := transform.Transform(*in, transform.Options{
		SiteName:  b.cfg.SiteName,
		BaseURL:   b.cfg.BaseURL,
		SourceURL: b.cfg.SourceURL,
		Now:       start,
	})
	if err != nil {
		info.Error = err.Error()
		return finish(), err
	}

	if err := b.publish(result.Files); err != nil {
		info.Error = err.Error()
		return finish(), err
	}

	b.setFingerprint(fp)
	info.Files = len(result.Files)
	out := finish()
	b.log.Info(ctx, "build complete",
		"build_id", out.ID,
		"files", out.Files,
		"duration", out.Duration.String())
	return out, nil
}

// readInputs loads the source document, the guide files and the manifest
// template, and fingerprints them all with xxhash.
func (b *Builder) readInputs() (*transform.Input, uint64, error) {
	src, err := os.ReadFile(b.cfg.SourcePath)
	if err != nil {
		return nil, 0, errors.FromFS("read source", b.cfg.SourcePath, err)
	}

	digest := xxhash.New()
	_, _ = digest.Write(src)

	in := &transform.Input{Source: src}

	guides, err := b.readGuides()
	if err != nil {
		return nil, 0, err
	}
	for _, g := range guides {
		_, _ = digest.WriteString(g.Name)
		_, _ = digest.Write(g.Data)
	}
	in.Guides = guides

	if b.cfg.ManifestTemplate != "" {
		tmpl, err := os.ReadFile(b.cfg.ManifestTemplate)
		if err == nil {
			in.ManifestTemplate = tmpl
			_, _ = digest.Write(tmpl)
		} else if !os.IsNotExist(err) {
			return nil, 0, errors.FromFS("read manifest template", b.cfg.ManifestTemplate, err)
		}
		// A missing template is fine; the transformer has a built-in one.
	}

	return in, digest.Sum64(), nil
}

// readGuides lists the guides directory. A missing directory means the
// site simply has no specialized guides.
func (b *Builder) readGuides() ([]transform.GuideFile, error) {
	if b.cfg.GuidesDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(b.cfg.GuidesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FromFS("read guides dir", b.cfg.GuidesDir, err)
	}

	var guides []transform.GuideFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.cfg.GuidesDir, entry.Name()))
		if err != nil {
			return nil, errors.FromFS("read guide", entry.Name(), err)
		}
		guides = append(guides, transform.GuideFile{Name: entry.Name(), Data: data})
	}
	sort.Slice(guides, func(i, j int) bool { return guides[i].Name < guides[j].Name })
	return guides, nil
}

// publish writes every artifact under the output directory. Each file is
// written to a temp name and renamed into place after its bytes are fully
// on disk, so readers never observe a partial write.
func (b *Builder) publish(files map[string][]byte) error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return errors.FromFS("create output dir", b.cfg.OutputDir, err)
	}

	// Stable write order; failure cases then abort at a deterministic
	// point.
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		dst := filepath.Join(b.cfg.OutputDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return errors.FromFS("create output dir", filepath.Dir(dst), err)
		}
		if err := writeFileAtomic(dst, files[rel], 0o644); err != nil {
			return errors.FromFS("write artifact", dst, err)
		}
	}
	return nil
}

func (b *Builder) outputPresent() bool {
	_, err := os.Stat(filepath.Join(b.cfg.OutputDir, filepath.FromSlash(transform.MainGuidePath)))
	return err == nil
}
