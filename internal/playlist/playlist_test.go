package playlist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFolder(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile %s: %v", f, err)
		}
	}
	return dir
}

func TestRebuild_FiltersPlayableExtensions(t *testing.T) {
	dir := newTestFolder(t, "a.mp3", "b.wav", "c.txt", "d.flac", "e.mp3")
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	pl, err := Rebuild(dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if pl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pl.Len())
	}
	for _, tr := range pl.Tracks() {
		ext := filepath.Ext(tr.File)
		if ext != ".mp3" && ext != ".wav" {
			t.Errorf("unexpected track %q in playlist", tr.File)
		}
	}
}

func TestRebuild_EmptyFolder(t *testing.T) {
	dir := newTestFolder(t, "notes.txt")

	pl, err := Rebuild(dir)
	if !errors.Is(err, ErrEmptyPlaylist) {
		t.Fatalf("Rebuild err = %v, want ErrEmptyPlaylist", err)
	}
	if pl == nil {
		t.Fatal("Rebuild returned nil playlist alongside ErrEmptyPlaylist")
	}
	if pl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", pl.Len())
	}
	if _, ok := pl.Current(); ok {
		t.Error("Current() reported a track for an empty playlist")
	}
}

func TestRebuild_MissingFolder(t *testing.T) {
	if _, err := Rebuild(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestNavigation_Scenario(t *testing.T) {
	pl := New("/music", []Track{{File: "b.mp3"}, {File: "a.wav"}, {File: "c.mp3"}})

	cur, ok := pl.Current()
	if !ok || cur.DisplayName() != "b" {
		t.Fatalf("Current() = %q, want b", cur.DisplayName())
	}

	pl.SetIndex(pl.NextIndex())
	pl.SetIndex(pl.NextIndex())
	if pl.Index() != 2 {
		t.Fatalf("index after two next = %d, want 2", pl.Index())
	}
	cur, _ = pl.Current()
	if cur.DisplayName() != "c" {
		t.Errorf("DisplayName() = %q, want c", cur.DisplayName())
	}

	pl.SetIndex(pl.NextIndex())
	if pl.Index() != 0 {
		t.Errorf("index after wraparound = %d, want 0", pl.Index())
	}
}

func TestNavigation_FullCycleReturnsToStart(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		tracks := make([]Track, n)
		for i := range tracks {
			tracks[i] = Track{File: "t.mp3"}
		}
		pl := New("/music", tracks)
		pl.SetIndex(n / 2)
		start := pl.Index()

		for i := 0; i < n; i++ {
			pl.SetIndex(pl.NextIndex())
		}
		if pl.Index() != start {
			t.Errorf("n=%d: %d next calls ended at %d, want %d", n, n, pl.Index(), start)
		}

		for i := 0; i < n; i++ {
			pl.SetIndex(pl.PrevIndex())
		}
		if pl.Index() != start {
			t.Errorf("n=%d: %d prev calls ended at %d, want %d", n, n, pl.Index(), start)
		}
	}
}

func TestNavigation_PrevInvertsNext(t *testing.T) {
	pl := New("/music", []Track{{File: "a.mp3"}, {File: "b.mp3"}, {File: "c.mp3"}, {File: "d.mp3"}})
	for start := 0; start < pl.Len(); start++ {
		pl.SetIndex(start)
		pl.SetIndex(pl.NextIndex())
		pl.SetIndex(pl.PrevIndex())
		if pl.Index() != start {
			t.Errorf("prev(next(%d)) = %d", start, pl.Index())
		}
	}
}

func TestNavigation_EmptyPlaylistNoOp(t *testing.T) {
	pl := New("/music", nil)
	if pl.NextIndex() != 0 {
		t.Errorf("NextIndex() = %d, want 0", pl.NextIndex())
	}
	if pl.PrevIndex() != 0 {
		t.Errorf("PrevIndex() = %d, want 0", pl.PrevIndex())
	}
	pl.SetIndex(3)
	if pl.Index() != 0 {
		t.Errorf("SetIndex on empty playlist moved the index to %d", pl.Index())
	}
}

func TestSetIndex_OutOfRangeResets(t *testing.T) {
	pl := New("/music", []Track{{File: "a.mp3"}, {File: "b.mp3"}})
	pl.SetIndex(1)
	pl.SetIndex(5)
	if pl.Index() != 0 {
		t.Errorf("Index() = %d after out-of-range SetIndex, want 0", pl.Index())
	}
	pl.SetIndex(-1)
	if pl.Index() != 0 {
		t.Errorf("Index() = %d after negative SetIndex, want 0", pl.Index())
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"short name", "b.mp3", "b"},
		{"keeps inner dots", "my.favorite.song.mp3", "my.favorite.song"},
		{"exactly at limit", "abcdefghijklmnopqrstuvwxyz12.wav", "abcdefghijklmnopqrstuvwxyz12"},
		{"truncated with ellipsis", "abcdefghijklmnopqrstuvwxyz1234567890.mp3", "abcdefghijklmnopqrstuvwxyz12..."},
		{"no extension", "track", "track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Track{File: tt.file}.DisplayName()
			if got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestIndexOf(t *testing.T) {
	pl := New("/music", []Track{{File: "a.mp3"}, {File: "b.wav"}})
	if got := pl.IndexOf("b.wav"); got != 1 {
		t.Errorf("IndexOf(b.wav) = %d, want 1", got)
	}
	if got := pl.IndexOf("missing.mp3"); got != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", got)
	}
}
