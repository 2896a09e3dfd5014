package registry

import (
	"fmt"
	"sync"

	"azure-face-go/config"
	"azure-face-go/internal/integrations/azureface"
)

// Entry pairs a configured profile with its ready-to-use client.
type Entry struct {
	Profile config.AzureProfile
	Client  *azureface.Client
}

// PersonGroupID returns the default person group of this profile.
func (e *Entry) PersonGroupID() string {
	return e.Profile.PersonGroupID
}

// Registry holds the configured Azure Face profiles. Lookups are explicit by
// profile id; the first configured profile acts as the default. There is no
// ambient global instance.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// NewFromConfig builds a client for every configured profile.
func NewFromConfig(cfg config.AzureConfig) (*Registry, error) {
	registry := New()
	for _, profile := range cfg.Profiles {
		client, err := azureface.NewClient(profile, cfg)
		if err != nil {
			return nil, err
		}
		if err := registry.Add(profile, client); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Add registers a profile. Profile ids are unique.
func (r *Registry) Add(profile config.AzureProfile, client *azureface.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == "" {
		return fmt.Errorf("profile id must not be empty")
	}
	if _, exists := r.entries[profile.ID]; exists {
		return fmt.Errorf("profile %q is already registered", profile.ID)
	}

	r.entries[profile.ID] = &Entry{Profile: profile, Client: client}
	r.order = append(r.order, profile.ID)
	return nil
}

// Get returns the profile with the given id, or the default profile when id
// is empty.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" {
		return r.defaultLocked()
	}
	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("unknown azure profile %q", id)
	}
	return entry, nil
}

// Default returns the first configured profile.
func (r *Registry) Default() (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultLocked()
}

func (r *Registry) defaultLocked() (*Entry, error) {
	if len(r.order) == 0 {
		return nil, fmt.Errorf("no azure profiles configured")
	}
	return r.entries[r.order[0]], nil
}

// List returns all entries in configuration order.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	return entries
}
