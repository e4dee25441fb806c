// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manifest is the subset of challenge.yaml the core reads.
type Manifest struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Points int    `yaml:"points"`
}

// NotFoundError reports that a challenge id has no directory under the
// catalog root.
type NotFoundError struct {
	ChallengeID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("challenge %s not found", e.ChallengeID)
}

// InvalidError reports that a challenge directory is missing a required
// file or carries a malformed manifest.
type InvalidError struct {
	ChallengeID string
	Reason      string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("challenge %s invalid: %s", e.ChallengeID, e.Reason)
}

// Catalog is a filesystem-backed ChallengeCatalog: root/<challenge_id>/
// directories each carrying challenge.yaml + validate.sh (+ optional
// setup.sh). Manifests are cached after first successful read since the
// catalog root is not expected to change at runtime.
type Catalog struct {
	root string

	mu    sync.RWMutex
	cache map[string]Manifest
}

// New creates a Catalog rooted at root.
func New(root string) *Catalog {
	return &Catalog{
		root:  root,
		cache: make(map[string]Manifest),
	}
}

// Dir returns the absolute path of challengeID's directory, validating
// that validate.sh exists and is the required entry point.
func (c *Catalog) Dir(challengeID string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(c.root, challengeID))
	if err != nil {
		return "", &NotFoundError{ChallengeID: challengeID}
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &NotFoundError{ChallengeID: challengeID}
	}

	if _, err := os.Stat(filepath.Join(dir, "validate.sh")); err != nil {
		return "", &InvalidError{ChallengeID: challengeID, Reason: "missing validate.sh"}
	}

	return dir, nil
}

// Manifest loads and caches challenge.yaml for challengeID.
func (c *Catalog) Manifest(challengeID string) (Manifest, error) {
	c.mu.RLock()
	m, ok := c.cache[challengeID]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	dir, err := c.Dir(challengeID)
	if err != nil {
		return Manifest{}, err
	}

	data, err := os.ReadFile(filepath.Join(dir, "challenge.yaml"))
	if err != nil {
		return Manifest{}, &InvalidError{ChallengeID: challengeID, Reason: "missing challenge.yaml"}
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, &InvalidError{ChallengeID: challengeID, Reason: fmt.Sprintf("malformed challenge.yaml: %v", err)}
	}
	if manifest.ID == "" {
		manifest.ID = challengeID
	}

	c.mu.Lock()
	c.cache[challengeID] = manifest
	c.mu.Unlock()

	return manifest, nil
}

// Points returns the point value awarded for solving challengeID.
func (c *Catalog) Points(challengeID string) (int, error) {
	m, err := c.Manifest(challengeID)
	if err != nil {
		return 0, err
	}
	return m.Points, nil
}
