// Package manifest records which files a generation run produced, so the
// next run can delete output that is no longer generated.
package manifest

import (
	"context"
	"encoding/json"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/broady/fluidgen/resolve"
	"github.com/broady/fluidgen/sink"
)

// SchemaVersion is the manifest format written by this package.
const SchemaVersion = "1.0.0"

// ErrIncompatible is returned by Compatible for manifests written by a
// newer major version, or with an unreadable version.
var ErrIncompatible = errors.New("incompatible manifest version")

// Manifest is the persisted record of one run. Paths are relative to the
// project root and slash-separated.
type Manifest struct {
	Version                    string              `json:"version"`
	LastGeneratedTimestamp     time.Time           `json:"lastGeneratedTimestamp"`
	SourceFileToGeneratedFiles map[string][]string `json:"sourceFileToGeneratedFiles"`
	AllGeneratedFilePaths      []string            `json:"allGeneratedFilePaths"`
	HasStreamingRoutes         bool                `json:"hasStreamingRoutes"`
}

// New returns an empty manifest stamped with now.
func New(now time.Time) *Manifest {
	return &Manifest{
		Version:                    SchemaVersion,
		LastGeneratedTimestamp:     now.UTC(),
		SourceFileToGeneratedFiles: make(map[string][]string),
		AllGeneratedFilePaths:      []string{},
	}
}

// Add records a generated file and the source files it came from. Lists
// stay sorted and free of duplicates.
func (m *Manifest) Add(generated string, sources ...string) {
	m.AllGeneratedFilePaths = insertSorted(m.AllGeneratedFilePaths, generated)
	for _, src := range sources {
		m.SourceFileToGeneratedFiles[src] = insertSorted(m.SourceFileToGeneratedFiles[src], generated)
	}
}

func insertSorted(list []string, s string) []string {
	i, found := slices.BinarySearch(list, s)
	if found {
		return list
	}
	return slices.Insert(list, i, s)
}

// Marshal encodes the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode manifest")
	}
	return append(data, '\n'), nil
}

// Load reads the manifest at the project-relative path through s. A missing
// file is not an error and returns nil.
func Load(ctx context.Context, s sink.OutputSink, path string) (*Manifest, error) {
	data, err := s.ReadFile(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	return Parse(data)
}

// Parse decodes a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode manifest")
	}
	return &m, nil
}

// Compatible reports whether m can be trusted for cleanup by this version.
func (m *Manifest) Compatible() error {
	current := semver.MustParse(SchemaVersion)
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return errors.Wrapf(ErrIncompatible, "version %q: %v", m.Version, err)
	}
	if v.Major() > current.Major() {
		return errors.Wrapf(ErrIncompatible, "manifest version %s is newer than %s", v, current)
	}
	return nil
}

// Stale returns the files prev generated that current does not, sorted.
// The manifest itself is never stale.
func Stale(prev, current *Manifest) []string {
	if prev == nil {
		return nil
	}
	keep := make(map[string]bool)
	if current != nil {
		for _, p := range current.AllGeneratedFilePaths {
			keep[p] = true
		}
	}
	var stale []string
	for _, p := range prev.AllGeneratedFilePaths {
		if keep[p] || path.Base(p) == resolve.ManifestFile {
			continue
		}
		stale = append(stale, p)
	}
	sort.Strings(stale)
	return slices.Compact(stale)
}

// Owned reports whether p, a path read from a manifest, names a file a run
// could have generated: a clean relative .ts path, inside location when the
// strategy is mirror. Anything else is never deleted.
func Owned(p string, strategy resolve.Strategy, location string) bool {
	if p == "" || path.Clean(p) != p || path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
		return false
	}
	if path.Ext(p) != ".ts" {
		return false
	}
	if strategy == resolve.CoLocate {
		return true
	}
	loc := path.Clean(filepath.ToSlash(location))
	return loc == "." || strings.HasPrefix(p, loc+"/")
}

// Cleanup removes each stale file through s. A failed removal does not stop
// the others; failures are returned keyed by path.
func Cleanup(ctx context.Context, s sink.OutputSink, stale []string) (deleted []string, failed map[string]error) {
	for _, p := range stale {
		if err := s.Remove(ctx, p); err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[p] = err
			continue
		}
		deleted = append(deleted, p)
	}
	return deleted, failed
}
