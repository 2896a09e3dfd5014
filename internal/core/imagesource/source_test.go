package imagesource

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"azure-face-go/config"
)

func TestPickPrecedence(t *testing.T) {
	src, err := Pick("aGk=", "/tmp/a.jpg", "http://example/a.jpg")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if _, ok := src.(Base64); !ok {
		t.Fatalf("expected inline data to win, got %T", src)
	}

	src, err = Pick("", "/tmp/a.jpg", "http://example/a.jpg")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if _, ok := src.(File); !ok {
		t.Fatalf("expected file path to win over url, got %T", src)
	}

	src, err = Pick("", "", "http://example/a.jpg")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if _, ok := src.(URL); !ok {
		t.Fatalf("expected url source, got %T", src)
	}

	if _, err := Pick("", "", ""); err == nil {
		t.Fatal("expected error when no field is set")
	}
}

func TestResolveBase64(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	resolver := NewResolver(nil)

	data, err := resolver.Resolve(context.Background(), Base64(base64.StdEncoding.EncodeToString(payload)))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("decoded payload mismatch: %v", data)
	}

	if _, err := resolver.Resolve(context.Background(), Base64("not!!base64")); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestResolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	resolver := NewResolver(nil)
	data, err := resolver.Resolve(context.Background(), File(path))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Fatalf("unexpected file content %q", data)
	}

	if _, err := resolver.Resolve(context.Background(), File(filepath.Join(t.TempDir(), "missing.jpg"))); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/snapshot.jpg" {
			w.Write([]byte("snapshot bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := NewResolver(nil)
	data, err := resolver.Resolve(context.Background(), URL(server.URL+"/snapshot.jpg"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if string(data) != "snapshot bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if _, err := resolver.Resolve(context.Background(), URL(server.URL+"/missing.jpg")); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestResolveCamera(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("camera frame"))
	}))
	defer server.Close()

	resolver := NewResolver(map[string]config.CameraConfig{
		"front_door": {SnapshotURL: server.URL + "/api/front_door/latest.jpg"},
	})

	data, err := resolver.Resolve(context.Background(), Camera("front_door"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if string(data) != "camera frame" {
		t.Fatalf("unexpected content %q", data)
	}

	if _, err := resolver.Resolve(context.Background(), Camera("backyard")); err == nil {
		t.Fatal("expected error for unknown camera")
	}
}

func TestResolveNilSource(t *testing.T) {
	if _, err := NewResolver(nil).Resolve(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}
