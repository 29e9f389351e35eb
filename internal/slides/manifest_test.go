package slides

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWriteReadManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "slide-001.jpg")
	if err := os.WriteFile(imgPath, []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := Manifest{
		SourceID:  "abc123",
		Kind:      "youtube",
		URL:       "https://youtube.com/watch?v=abc123",
		SlidesDir: dir,
		Settings:  "maxSlides=20,minDuration=15.0,ocr=false",
		Slides:    []Slide{{Index: 1, TimestampSec: 5, ImagePath: "slide-001.jpg"}},
	}
	if err := WriteManifest(m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, ok := ReadManifest(dir)
	if !ok {
		t.Fatal("expected manifest to be readable")
	}
	if got.SourceID != m.SourceID || len(got.Slides) != 1 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestReadManifestMissingReturnsNotOK(t *testing.T) {
	if _, ok := ReadManifest(t.TempDir()); ok {
		t.Fatal("expected ok=false for a directory with no slides.json")
	}
}

func TestValidateManifestAcceptsMatching(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Dir(dir)
	sourceID := filepath.Base(dir)
	imgPath := filepath.Join(dir, "slide-001.jpg")
	if err := os.WriteFile(imgPath, []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := Manifest{
		SourceID:    sourceID,
		Kind:        "website",
		URL:         "https://example.com",
		SlidesDir:   dir,
		SlidesDirID: dirIdentity(dir),
		Settings:    "s1",
		Slides:      []Slide{{Index: 1, ImagePath: "slide-001.jpg"}},
	}

	if err := ValidateManifest(m, outputDir, sourceID, "website", "https://example.com", dirIdentity(dir), "s1"); err != nil {
		t.Fatalf("expected a matching manifest to validate, got: %v", err)
	}
}

func TestValidateManifestRejectsSettingsMismatch(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Dir(dir)
	sourceID := filepath.Base(dir)

	m := Manifest{
		SourceID:    sourceID,
		Kind:        "website",
		URL:         "https://example.com",
		SlidesDir:   dir,
		SlidesDirID: dirIdentity(dir),
		Settings:    "old-settings",
	}

	if err := ValidateManifest(m, outputDir, sourceID, "website", "https://example.com", dirIdentity(dir), "new-settings"); err == nil {
		t.Fatal("expected settings mismatch to invalidate the manifest")
	}
}

func TestValidateManifestRejectsEscapingImagePath(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Dir(dir)
	sourceID := filepath.Base(dir)

	m := Manifest{
		SourceID:    sourceID,
		Kind:        "website",
		URL:         "https://example.com",
		SlidesDir:   dir,
		SlidesDirID: dirIdentity(dir),
		Settings:    "s1",
		Slides:      []Slide{{Index: 1, ImagePath: "../escape.jpg"}},
	}

	if err := ValidateManifest(m, outputDir, sourceID, "website", "https://example.com", dirIdentity(dir), "s1"); err == nil {
		t.Fatal("expected an imagePath escaping slidesDir to be rejected")
	}
}

func TestValidateManifestRejectsMissingImageFile(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Dir(dir)
	sourceID := filepath.Base(dir)

	m := Manifest{
		SourceID:    sourceID,
		Kind:        "website",
		URL:         "https://example.com",
		SlidesDir:   dir,
		SlidesDirID: dirIdentity(dir),
		Settings:    "s1",
		Slides:      []Slide{{Index: 1, ImagePath: "missing.jpg"}},
	}

	if err := ValidateManifest(m, outputDir, sourceID, "website", "https://example.com", dirIdentity(dir), "s1"); err == nil {
		t.Fatal("expected a missing image file to invalidate the manifest")
	}
}

func TestLockSlidesDirSerializesAndNotifiesWaiters(t *testing.T) {
	dir := t.TempDir()
	var notified int32
	var mu sync.Mutex
	var order []string

	unlock1 := LockSlidesDir(dir, nil)

	done := make(chan struct{})
	go func() {
		unlock2 := LockSlidesDir(dir, func() {
			notified = 1
		})
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		unlock2()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, "first")
	mu.Unlock()
	unlock1()
	<-done

	if notified != 1 {
		t.Fatal("expected the waiting caller to be notified")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" {
		t.Fatalf("expected first lock holder to run before the second, got %v", order)
	}
}
