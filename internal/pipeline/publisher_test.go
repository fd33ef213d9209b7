package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPublishRoundTrip(t *testing.T) {
	root := t.TempDir()
	p, err := NewPublisher(root, "")
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	encoded, err := placeholderPNG()
	if err != nil {
		t.Fatalf("placeholderPNG() error = %v", err)
	}

	path, err := p.Publish("model-01", encoded)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if want := filepath.Join(root, "model-01.png"); path != want {
		t.Errorf("Publish() path = %q, want %q", path, want)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if !bytes.Equal(got, encoded) {
		t.Errorf("artifact bytes differ from encoding (%d vs %d bytes)", len(got), len(encoded))
	}
}

func TestPublishRejectsBadEncodings(t *testing.T) {
	root := t.TempDir()
	p, err := NewPublisher(root, "")
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	cases := map[string][]byte{
		"empty":     nil,
		"not a png": []byte("JFIF not actually a png"),
		"truncated": {0x89, 'P', 'N'},
	}
	for name, data := range cases {
		if _, err := p.Publish("bad", data); !errors.Is(err, ErrBadArtifact) {
			t.Errorf("%s: Publish() error = %v, want ErrBadArtifact", name, err)
		}
	}

	if _, err := os.Stat(p.ArtifactPath("bad")); !os.IsNotExist(err) {
		t.Error("rejected publish left a file at the artifact path")
	}
}

func TestPublishFailurePreservesPrevious(t *testing.T) {
	root := t.TempDir()
	p, err := NewPublisher(root, "")
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	encoded, err := placeholderPNG()
	if err != nil {
		t.Fatalf("placeholderPNG() error = %v", err)
	}
	if _, err := p.Publish("model-02", encoded); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if _, err := p.Publish("model-02", []byte("garbage")); err == nil {
		t.Fatal("Publish() of garbage succeeded, want error")
	}

	got, err := os.ReadFile(p.ArtifactPath("model-02"))
	if err != nil {
		t.Fatalf("reading artifact after failed publish: %v", err)
	}
	if !bytes.Equal(got, encoded) {
		t.Error("failed publish corrupted the previous artifact")
	}
}

func TestPublishLeavesNoPartialFiles(t *testing.T) {
	root := t.TempDir()
	p, err := NewPublisher(root, "")
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if _, err := p.Publish("half", []byte("not png")); err == nil {
		t.Fatal("Publish() succeeded, want error")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != ".scratch" {
			t.Errorf("unexpected entry %q in artifact root", e.Name())
		}
	}
}

func TestPublisherScratchDefault(t *testing.T) {
	root := t.TempDir()
	if _, err := NewPublisher(root, ""); err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(root, ".scratch"))
	if err != nil || !info.IsDir() {
		t.Errorf("default scratch dir missing: info=%v err=%v", info, err)
	}
}

func TestArtifactPath(t *testing.T) {
	p := &Publisher{artifactRoot: "/var/artifacts"}
	if got, want := p.ArtifactPath("abc"), filepath.Join("/var/artifacts", "abc.png"); got != want {
		t.Errorf("ArtifactPath() = %q, want %q", got, want)
	}
}
