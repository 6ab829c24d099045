package port

// FileWalker lists the knowledge-base files under a root directory.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo describes one knowledge-base file. Path is absolute; ModTime is
// Unix seconds.
type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// FileReader returns a file's content as valid UTF-8 text.
type FileReader interface {
	ReadFile(path string) (string, error)
}
