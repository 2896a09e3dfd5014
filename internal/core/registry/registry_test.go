package registry

import (
	"testing"

	"azure-face-go/config"
)

func testConfig() config.AzureConfig {
	return config.AzureConfig{
		TimeoutSeconds: 10,
		Profiles: []config.AzureProfile{
			{ID: "primary", Region: "eastus", APIKey: "k1", PersonGroupID: "family"},
			{ID: "secondary", Endpoint: "https://example.local", APIKey: "k2", PersonGroupID: "office"},
		},
	}
}

func TestNewFromConfigBuildsAllProfiles(t *testing.T) {
	registry, err := NewFromConfig(testConfig())
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}

	entries := registry.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Profile.ID != "primary" || entries[1].Profile.ID != "secondary" {
		t.Fatalf("configuration order not preserved: %v", entries)
	}
	if entries[0].Client.Endpoint() != "https://eastus.api.cognitive.microsoft.com" {
		t.Fatalf("region not resolved: %q", entries[0].Client.Endpoint())
	}
}

func TestNewFromConfigRejectsUnknownRegion(t *testing.T) {
	cfg := config.AzureConfig{
		Profiles: []config.AzureProfile{{ID: "bad", Region: "atlantis", APIKey: "k"}},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Fatal("expected error for unknown region")
	}
}

func TestGetByIDAndDefault(t *testing.T) {
	registry, err := NewFromConfig(testConfig())
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}

	entry, err := registry.Get("secondary")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if entry.PersonGroupID() != "office" {
		t.Fatalf("unexpected entry %+v", entry.Profile)
	}

	// An empty id falls back to the first configured profile.
	entry, err = registry.Get("")
	if err != nil {
		t.Fatalf("Get with empty id returned error: %v", err)
	}
	if entry.Profile.ID != "primary" {
		t.Fatalf("expected default profile, got %q", entry.Profile.ID)
	}

	if _, err := registry.Get("nope"); err == nil {
		t.Fatal("expected error for unknown profile id")
	}
}

func TestDefaultOnEmptyRegistry(t *testing.T) {
	if _, err := New().Default(); err == nil {
		t.Fatal("expected error when no profiles are configured")
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	registry, err := NewFromConfig(testConfig())
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}

	err = registry.Add(config.AzureProfile{ID: "primary", Endpoint: "https://x", APIKey: "k"}, nil)
	if err == nil {
		t.Fatal("expected error for duplicate profile id")
	}
}
