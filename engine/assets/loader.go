package assets

import (
	"io"
	"io/fs"
	"os"
)

type Loader interface {
	Load(path string) ([]byte, error)
	// Name is how the loaded path is reported in logs.
	Name(path string) string
}

type FileLoader struct{}

func (fl *FileLoader) Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (fl *FileLoader) Name(path string) string {
	return path
}

type EmbeddedLoader struct {
	FS fs.FS
}

func (el *EmbeddedLoader) Load(path string) ([]byte, error) {
	return fs.ReadFile(el.FS, path)
}

func (el *EmbeddedLoader) Name(path string) string {
	return "builtin:" + path
}
