package testsupport

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

// WriteArtifact writes size bytes of a repeating byte ramp to path, creating
// parent directories. A size <= 0 writes a single byte. It returns path so
// callers can use it inline.
func WriteArtifact(t testing.TB, path string, size int64) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	w := bufio.NewWriterSize(f, 64*1024)
	for i := int64(0); i < size; i++ {
		if err := w.WriteByte(byte(i % 251)); err != nil {
			_ = f.Close()
			t.Fatalf("write %s: %v", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		t.Fatalf("flush %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}
