// Package apisurface maintains the set of approved Isaac Lab MDP symbols that
// generated configs are checked against.
//
// A Registry builds its Surface lazily from three sources: markdown reference
// documents (### mdp.name and ### ClassName headings), a YAML manifest, and a
// supplemental set of task-scoped symbols the documents do not cover. The
// result is cached until Invalidate is called.
package apisurface

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"

	"robospec/internal/logging"
)

var (
	funcHeading = regexp.MustCompile(`(?m)^###\s+mdp\.(\w+)`)
	typeHeading = regexp.MustCompile(`(?m)^###\s+([A-Z]\w+)`)
)

// Supplemental lists symbols that exist in Isaac Lab task packages (reach,
// cartpole and locomotion mdp modules) and are reachable through the core
// alias in practice, but are absent from the reference documents.
var Supplemental = []string{
	// reach rewards
	"position_command_error",
	"position_command_error_tanh",
	"orientation_command_error",
	// cartpole rewards
	"joint_pos_target_l2",
	// locomotion rewards
	"feet_air_time",
	// command configs
	"UniformVelocityCommandCfg",
	"UniformPoseCommandCfg",
	"NullCommandCfg",
	// locomotion events
	"randomize_rigid_body_material",
	"randomize_rigid_body_mass",
	// curriculum
	"modify_reward_weight",
	"terrain_levels_vel",
}

// Options selects the sources a Registry reads.
type Options struct {
	// ReferenceDir holds *.md API reference documents. Optional.
	ReferenceDir string
	// ManifestPath points at a YAML manifest. Optional.
	ManifestPath string
	// UseEmbedded adds the manifest compiled into the binary.
	UseEmbedded bool
}

// Stats describes where the current Surface came from.
type Stats struct {
	Documents    int // reference documents scanned
	Headings     int // distinct names found in documents
	Manifest     int // names contributed by manifests
	Supplemental int // names added from the supplemental set
	Total        int
	Loads        int // number of cache fills since creation
}

// Registry lazily builds and caches a Surface.
type Registry struct {
	opts Options

	mu     sync.RWMutex
	cached *Surface
	stats  Stats
	loads  int
	gen    uint64 // bumped by Invalidate

	group singleflight.Group

	afterBuild func() // test hook
}

// New creates a Registry. Nothing is read until Load.
func New(opts Options) *Registry {
	return &Registry{opts: opts}
}

// Options returns the registry's source options.
func (r *Registry) Options() Options { return r.opts }

// Load returns the cached Surface, building it on first use. Concurrent
// first calls share one build. An empty Surface means no source was
// available and the whitelist check must be skipped.
func (r *Registry) Load() Surface {
	r.mu.RLock()
	if r.cached != nil {
		s := *r.cached
		r.mu.RUnlock()
		return s
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do("load", func() (interface{}, error) {
		r.mu.RLock()
		if r.cached != nil {
			s := *r.cached
			r.mu.RUnlock()
			return s, nil
		}
		gen := r.gen
		r.mu.RUnlock()

		s, stats := r.build()
		if r.afterBuild != nil {
			r.afterBuild()
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		// An Invalidate during the build means s may predate the change.
		if r.gen == gen {
			r.loads++
			stats.Loads = r.loads
			r.cached = &s
			r.stats = stats
		}
		return s, nil
	})
	return v.(Surface)
}

// Stats returns statistics for the current Surface, loading it if needed.
func (r *Registry) Stats() Stats {
	r.Load()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Invalidate drops the cached Surface. The next Load rebuilds it, even when
// a build started before the call is still running.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.cached = nil
	r.group.Forget("load")
	r.mu.Unlock()
	logging.RegistryDebug("registry invalidated")
}

func (r *Registry) build() (Surface, Stats) {
	var (
		names     []string
		stats     Stats
		available bool
	)

	if r.opts.ReferenceDir != "" {
		docNames, docs, err := scanReferenceDir(r.opts.ReferenceDir)
		switch {
		case err == nil:
			available = true
			stats.Documents = docs
			stats.Headings = NewSurface(docNames...).Len()
			names = append(names, docNames...)
		case errors.Is(err, fs.ErrNotExist):
			logging.RegistryDebug("reference dir %s not found", r.opts.ReferenceDir)
		default:
			logging.Get(logging.CategoryRegistry).Warn("failed to scan reference dir %s: %v", r.opts.ReferenceDir, err)
		}
	}

	if r.opts.ManifestPath != "" {
		m, err := LoadManifest(r.opts.ManifestPath)
		switch {
		case err == nil:
			available = true
			syms := m.Symbols()
			stats.Manifest += len(syms)
			names = append(names, syms...)
		case errors.Is(err, fs.ErrNotExist):
			logging.RegistryDebug("manifest %s not found", r.opts.ManifestPath)
		default:
			logging.Get(logging.CategoryRegistry).Warn("failed to load manifest %s: %v", r.opts.ManifestPath, err)
		}
	}

	if r.opts.UseEmbedded {
		available = true
		syms := EmbeddedManifest().Symbols()
		stats.Manifest += len(syms)
		names = append(names, syms...)
	}

	if !available {
		logging.Get(logging.CategoryRegistry).Warn("no API surface source available; whitelist check disabled")
		return NewSurface(), stats
	}

	before := NewSurface(names...).Len()
	names = append(names, Supplemental...)
	s := NewSurface(names...)
	stats.Supplemental = s.Len() - before
	stats.Total = s.Len()

	logging.Registry("loaded %d symbols (%d documents, %d manifest entries)", stats.Total, stats.Documents, stats.Manifest)
	return s, stats
}

// scanReferenceDir extracts heading names from every *.md file in dir.
func scanReferenceDir(dir string) ([]string, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, err
	}
	if !info.IsDir() {
		return nil, 0, fs.ErrNotExist
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, 0, err
	}

	var names []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			logging.Get(logging.CategoryRegistry).Warn("skipping %s: %v", f, err)
			continue
		}
		names = append(names, ScanHeadings(string(data))...)
	}
	return names, len(files), nil
}

// ScanHeadings returns the symbol names declared by markdown headings.
func ScanHeadings(text string) []string {
	var out []string
	for _, m := range funcHeading.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range typeHeading.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
