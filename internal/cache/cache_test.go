package cache

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func TestKey_DeterministicAndNamespaced(t *testing.T) {
	k1 := Key("https://example.org/report")
	k2 := Key("https://example.org/report")
	if k1 != k2 {
		t.Error("Expected identical sources to derive the same key")
	}
	if k1 == Key("https://example.org/other") {
		t.Error("Expected different sources to derive different keys")
	}
	if k1[:len("watchtower:v1:")] != "watchtower:v1:" {
		t.Errorf("Expected namespaced key, got %s", k1)
	}
}

func TestMemory_SetGetDelete(t *testing.T) {
	c := NewMemory(time.Minute, time.Minute)

	if _, found := c.Get("absent"); found {
		t.Error("Expected miss on empty cache")
	}

	if err := c.Set("page", []byte("fetched body"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, found := c.Get("page")
	if !found || !bytes.Equal(got, []byte("fetched body")) {
		t.Errorf("Expected stored value back, got %q found=%v", got, found)
	}

	if err := c.Delete("page"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("page"); found {
		t.Error("Expected miss after delete")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	c := NewMemory(time.Minute, time.Minute)
	if err := c.Set("short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("short"); found {
		t.Error("Expected entry to expire")
	}
}

func TestDisk_SetGetClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bytecache")
	c := NewDisk(dir, time.Minute)

	if err := c.Set(Key("https://example.org"), []byte("persisted body"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a fresh handle on the same directory sees the entry
	reopened := NewDisk(dir, time.Minute)
	got, found := reopened.Get(Key("https://example.org"))
	if !found || !bytes.Equal(got, []byte("persisted body")) {
		t.Errorf("Expected persisted value, got %q found=%v", got, found)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get(Key("https://example.org")); found {
		t.Error("Expected miss after clear")
	}
}

func TestDisk_ExpiredEntryRemoved(t *testing.T) {
	c := NewDisk(filepath.Join(t.TempDir(), "bytecache"), time.Minute)
	if err := c.Set("short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("short"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayered_PromotesDiskHits(t *testing.T) {
	mem := NewMemory(time.Minute, time.Minute)
	disk := NewDisk(filepath.Join(t.TempDir(), "bytecache"), time.Minute)
	c := NewLayered(mem, disk)

	if err := c.Set("page", []byte("warm body"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// drop the memory layer, disk still answers and repopulates it
	if err := mem.Clear(); err != nil {
		t.Fatal(err)
	}
	got, found := c.Get("page")
	if !found || !bytes.Equal(got, []byte("warm body")) {
		t.Errorf("Expected disk layer hit, got %q found=%v", got, found)
	}
	if _, found := mem.Get("page"); !found {
		t.Error("Expected hit promoted back into the memory layer")
	}

	if err := c.Delete("page"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("page"); found {
		t.Error("Expected miss after delete in both layers")
	}
}
