// Package file provides a TOML-backed safety policy store with hot reload.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Ensure PolicyStore implements the interface.
var _ driven.PolicyStore = (*PolicyStore)(nil)

// policyFile is the TOML override format. Keywords and phrases are added to
// the built-in sets; scalars replace the built-in values when present.
type policyFile struct {
	EmergencyKeywords  []string `toml:"emergency_keywords"`
	BlockedPhrases     []string `toml:"blocked_phrases"`
	RequiredDisclaimer string   `toml:"required_disclaimer"`
	CitationRequired   *bool    `toml:"citation_required"`
}

// PolicyStore serves the safety policy: the built-in default unioned with an
// optional TOML override file. When the file changes on disk the merged
// policy is rebuilt and swapped atomically, so a malformed edit never
// replaces a good policy.
type PolicyStore struct {
	mu      sync.RWMutex
	current domain.Policy

	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewPolicyStore creates a policy store. An empty path serves the built-in
// policy with no watching. A non-empty path must parse at startup; later
// changes are picked up by the file watcher.
func NewPolicyStore(path string) (*PolicyStore, error) {
	s := &PolicyStore{
		current: domain.DefaultPolicy(),
		path:    path,
	}
	if path == "" {
		return s, nil
	}

	policy, err := loadMerged(path)
	if err != nil {
		return nil, err
	}
	s.current = policy

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating policy watcher: %w", err)
	}
	// Watch the directory: editors replace files, which drops a watch on
	// the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching policy file: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watch()

	return s, nil
}

// Policy returns the current merged policy.
func (s *PolicyStore) Policy() domain.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Close stops the file watcher.
func (s *PolicyStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	return err
}

// Reload re-reads the override file and swaps in the merged policy.
func (s *PolicyStore) Reload() error {
	policy, err := loadMerged(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = policy
	s.mu.Unlock()
	logger.Info("safety policy reloaded from %s", s.path)
	return nil
}

func (s *PolicyStore) watch() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				// Keep serving the previous policy.
				logger.Warn("policy reload failed, keeping current policy: %v", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("policy watcher error: %v", err)
		}
	}
}

// loadMerged parses the override file and unions it over the default policy.
func loadMerged(path string) (domain.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	var pf policyFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return domain.Policy{}, fmt.Errorf("parsing policy file: %w", err)
	}

	override := domain.Policy{
		EmergencyKeywords:  toSet(pf.EmergencyKeywords),
		BlockedPhrases:     toSet(pf.BlockedPhrases),
		RequiredDisclaimer: pf.RequiredDisclaimer,
	}

	merged := domain.DefaultPolicy().Union(override)
	if pf.CitationRequired != nil {
		merged.CitationRequired = *pf.CitationRequired
	}
	return merged, nil
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
