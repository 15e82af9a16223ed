package collect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&Manual{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(&File{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// duplicate registration is refused
	if err := reg.Register(&Manual{}); err == nil {
		t.Error("Expected error for duplicate registration")
	}

	c, err := reg.Get("manual")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.Name() != "manual" {
		t.Errorf("Expected manual collector, got %s", c.Name())
	}

	if _, err := reg.Get("carrier-pigeon"); err == nil {
		t.Error("Expected error for unknown collector")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "file" || names[1] != "manual" {
		t.Errorf("Expected sorted names [file manual], got %v", names)
	}
}

func TestManual_Extract(t *testing.T) {
	m := Manual{}

	inputs, err := m.Extract(context.Background(), Descriptor{
		Content:  "witness statement text",
		Source:   "interview:2026-03-04",
		Metadata: map[string]string{"interviewer": "jk"},
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("Expected one input, got %d", len(inputs))
	}
	if inputs[0].Content != "witness statement text" {
		t.Errorf("Expected content to pass through, got %q", inputs[0].Content)
	}
	if inputs[0].Metadata["interviewer"] != "jk" {
		t.Errorf("Expected caller metadata to survive, got %v", inputs[0].Metadata)
	}

	// source defaults when omitted
	inputs, err = m.Extract(context.Background(), Descriptor{Content: "text"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if inputs[0].Source != "manual" {
		t.Errorf("Expected default source, got %q", inputs[0].Source)
	}

	// content is mandatory
	if _, err := m.Extract(context.Background(), Descriptor{Source: "somewhere"}); err == nil {
		t.Error("Expected error for empty content")
	}
}

func TestFile_Extract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.log")
	if err := os.WriteFile(path, []byte("Mar  4 03:14:07 sshd accepted publickey"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f := File{}
	inputs, err := f.Extract(context.Background(), Descriptor{Source: path})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("Expected one input, got %d", len(inputs))
	}
	if inputs[0].Source != path {
		t.Errorf("Expected cleaned path as source, got %q", inputs[0].Source)
	}
	if inputs[0].Metadata["size_bytes"] != "39" {
		t.Errorf("Expected size metadata, got %v", inputs[0].Metadata)
	}

	if _, err := f.Extract(context.Background(), Descriptor{Source: filepath.Join(dir, "missing.log")}); err == nil {
		t.Error("Expected error for a missing file")
	}
	if _, err := f.Extract(context.Background(), Descriptor{}); err == nil {
		t.Error("Expected error for empty source")
	}
}
