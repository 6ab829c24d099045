package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tese.md", "# Tese")
	writeFile(t, root, "capitulos/dispensacao.txt", "dispensação")
	writeFile(t, root, "capitulos/figura.png", "binary")
	writeFile(t, root, ".roteiro/notas.md", "ignored")
	writeFile(t, root, "node_modules/pkg/readme.md", "ignored")

	w := NewWalker(
		[]string{"**/*.md", "**/*.txt"},
		[]string{"**/.roteiro/**", "**/node_modules/**"},
	)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, filepath.ToSlash(rel))
	}

	want := []string{"capitulos/dispensacao.txt", "tese.md"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	for _, f := range files {
		if f.Size == 0 || f.ModTime == 0 {
			t.Errorf("expected size and mod time for %s", f.Path)
		}
	}
}

func TestWalkerDefaultIncludesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")
	writeFile(t, root, "b.csv", "b")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %d", len(files))
	}
}

func TestWalkerMissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestReaderReplacesInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "latin1.txt")
	if err := os.WriteFile(path, []byte{'d', 'o', 's', 'e', 0xe9}, 0644); err != nil {
		t.Fatal(err)
	}

	text, err := Reader{}.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "dose�" {
		t.Errorf("expected replacement rune, got %q", text)
	}
}
