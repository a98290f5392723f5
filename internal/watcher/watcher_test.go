package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, sources, exts []string) (*Watcher, *atomic.Int32) {
	t.Helper()
	var rebuilds atomic.Int32
	w := NewWatcher(sources, exts, func(context.Context) { rebuilds.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, &rebuilds
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_SourceFileChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "faq.md")
	other := filepath.Join(dir, "notes.md")
	for _, p := range []string{src, other} {
		if err := writeFile(p, "v1"); err != nil {
			t.Fatal(err)
		}
	}
	_, rebuilds := startWatcher(t, []string{src}, nil)

	if err := writeFile(other, "v2"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	if n := rebuilds.Load(); n != 0 {
		t.Fatalf("unwatched sibling triggered %d rebuilds", n)
	}

	if err := writeFile(src, "v2"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("no rebuild after source change")
	}
}

func TestWatcher_DebounceCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "faq.md")
	if err := writeFile(src, "v0"); err != nil {
		t.Fatal(err)
	}
	_, rebuilds := startWatcher(t, []string{src}, nil)

	for i := 0; i < 5; i++ {
		if err := writeFile(src, "v"+string(rune('1'+i))); err != nil {
			t.Fatal(err)
		}
	}
	if !waitFor(t, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("no rebuild after burst")
	}
	time.Sleep(4 * testDebounce)
	if n := rebuilds.Load(); n != 1 {
		t.Errorf("burst caused %d rebuilds, want 1", n)
	}
}

func TestWatcher_DirectoryExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	_, rebuilds := startWatcher(t, []string{dir}, []string{".txt"})

	if err := writeFile(filepath.Join(dir, "image.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	if n := rebuilds.Load(); n != 0 {
		t.Fatalf("unsupported file triggered %d rebuilds", n)
	}

	if err := writeFile(filepath.Join(dir, "doc.TXT"), "hello"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("no rebuild after supported file was written")
	}
}

func TestWatcher_NewNestedDirectory(t *testing.T) {
	dir := t.TempDir()
	_, rebuilds := startWatcher(t, []string{dir}, []string{".txt"})

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("no rebuild after directory was added")
	}
	// Give the watcher time to register the new directories.
	time.Sleep(4 * testDebounce)
	before := rebuilds.Load()

	if err := writeFile(filepath.Join(nested, "deep.txt"), "deep"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rebuilds.Load() > before }) {
		t.Error("no rebuild after file written in new nested directory")
	}
}

func TestWatcher_ChangeDuringRebuildRunsOnceMore(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 4)
	var calls atomic.Int32
	w := NewWatcher(nil, nil, func(context.Context) {
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release
		}
	})
	w.started = true
	w.ctx = context.Background()

	done := make(chan struct{})
	go func() {
		w.fire()
		close(done)
	}()
	<-entered
	w.fire()
	w.fire()
	close(release)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("rebuild loop did not finish")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("rebuilds = %d, want 2", n)
	}
	if w.running || w.pending {
		t.Errorf("running = %v, pending = %v after loop", w.running, w.pending)
	}
}

func TestWatcher_StopCancelsPendingRebuild(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "faq.md")
	if err := writeFile(src, "v1"); err != nil {
		t.Fatal(err)
	}
	var rebuilds atomic.Int32
	w := NewWatcher([]string{src}, nil, func(context.Context) { rebuilds.Add(1) }, WithDebounce(time.Hour))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := writeFile(src, "v2"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	w.Stop()
	w.Stop()
	if n := rebuilds.Load(); n != 0 {
		t.Errorf("rebuilds = %d after Stop, want 0", n)
	}
}

func TestNewWatcher_classifiesSources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.md")
	if err := writeFile(file, "a"); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "later.md")
	w := NewWatcher([]string{dir, file, missing}, nil, func(context.Context) {})

	if len(w.roots) != 1 || w.roots[0] != filepath.Clean(dir) {
		t.Errorf("roots = %v", w.roots)
	}
	if !w.files[file] || !w.files[missing] {
		t.Errorf("files = %v", w.files)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{".txt"}, true},
		{"/a/b.md", []string{"md"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
		{"/tmp/a", "/tmp/ab", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
