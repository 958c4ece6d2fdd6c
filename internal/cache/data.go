// Package cache mirrors the workspace cache file that flow writes to disk.
// The mirror is read-only: it is replaced wholesale whenever a newer file
// decodes successfully and is never written back.
package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flowexec/flowbridge/internal/config"
	"gopkg.in/yaml.v3"
)

const (
	// flowCacheDir is appended to os.UserCacheDir when FLOW_CACHE_DIR is unset.
	flowCacheDir = "flow"
	// latestCacheDir holds the current snapshot files written by flow.
	latestCacheDir = "latestcache"
	// WorkspaceCacheKey is the file name of the workspace snapshot.
	WorkspaceCacheKey = "workspace"
)

// Data is one decoded snapshot of the workspace cache file.
type Data struct {
	Workspaces         map[string]Workspace `yaml:"workspaces" json:"workspaces"`
	WorkspaceLocations map[string]string    `yaml:"workspaceLocations" json:"workspaceLocations"`
}

// Workspace is the configuration flow recorded for one workspace.
type Workspace struct {
	DisplayName     string              `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Description     string              `yaml:"description,omitempty" json:"description,omitempty"`
	DescriptionFile string              `yaml:"descriptionFile,omitempty" json:"descriptionFile,omitempty"`
	Tags            []string            `yaml:"tags,omitempty" json:"tags,omitempty"`
	VerbAliases     map[string][]string `yaml:"verbAliases,omitempty" json:"verbAliases,omitempty"`
	Executables     *ExecutableFilter   `yaml:"executables,omitempty" json:"executables,omitempty"`
}

// ExecutableFilter limits which paths flow scans for executables.
type ExecutableFilter struct {
	Included []string `yaml:"included,omitempty" json:"included,omitempty"`
	Excluded []string `yaml:"excluded,omitempty" json:"excluded,omitempty"`
}

// Empty returns a snapshot with non-nil, empty maps.
func Empty() Data {
	return Data{
		Workspaces:         map[string]Workspace{},
		WorkspaceLocations: map[string]string{},
	}
}

// Clone returns a deep copy, so callers can never alias the cached value.
func (d Data) Clone() Data {
	out := Empty()
	for name, ws := range d.Workspaces {
		out.Workspaces[name] = ws.clone()
	}
	for name, loc := range d.WorkspaceLocations {
		out.WorkspaceLocations[name] = loc
	}
	return out
}

// Len returns the number of workspaces in the snapshot.
func (d Data) Len() int {
	return len(d.Workspaces)
}

func (w Workspace) clone() Workspace {
	out := w
	out.Tags = cloneStrings(w.Tags)
	if w.VerbAliases != nil {
		out.VerbAliases = make(map[string][]string, len(w.VerbAliases))
		for verb, aliases := range w.VerbAliases {
			out.VerbAliases[verb] = cloneStrings(aliases)
		}
	}
	if w.Executables != nil {
		out.Executables = &ExecutableFilter{
			Included: cloneStrings(w.Executables.Included),
			Excluded: cloneStrings(w.Executables.Excluded),
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Path returns the workspace cache file location: $FLOW_CACHE_DIR, or the
// platform user cache directory plus "flow", joined with
// latestcache/workspace.
func Path(env config.Environment) (string, error) {
	root := env.Get(config.EnvCacheDir)
	if root == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("resolve user cache directory: %w", err)
		}
		root = filepath.Join(dir, flowCacheDir)
	}
	return filepath.Join(root, latestCacheDir, WorkspaceCacheKey), nil
}

// document mirrors Data with pointer fields so absent keys can be told
// apart from empty ones.
type document struct {
	Workspaces         *map[string]Workspace `yaml:"workspaces"`
	WorkspaceLocations *map[string]string    `yaml:"workspaceLocations"`
}

// Decode parses a snapshot. Both top-level keys are required: flow always
// writes them, so a document without one is foreign or was truncated
// mid-write. An empty document is an error for the same reason.
func Decode(raw []byte) (Data, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return Data{}, fmt.Errorf("empty cache document")
		}
		return Data{}, err
	}
	if doc.Workspaces == nil {
		return Data{}, fmt.Errorf("cache document has no workspaces key")
	}
	if doc.WorkspaceLocations == nil {
		return Data{}, fmt.Errorf("cache document has no workspaceLocations key")
	}

	d := Data{Workspaces: *doc.Workspaces, WorkspaceLocations: *doc.WorkspaceLocations}
	if d.Workspaces == nil {
		d.Workspaces = map[string]Workspace{}
	}
	if d.WorkspaceLocations == nil {
		d.WorkspaceLocations = map[string]string{}
	}
	return d, nil
}

// Load reads and decodes the file at path.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	return Decode(raw)
}
