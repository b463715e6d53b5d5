package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"slate/internal/config"
)

// WriteWorkflowProfile writes a minimal valid workflow profile for the
// given pipeline id into the config's workflow directory and returns its
// path.
func WriteWorkflowProfile(t testing.TB, cfg *config.Config, id string) string {
	t.Helper()

	doc := `{
  "id": "` + id + `",
  "workflow": {
    "1": {"class_type": "CLIPTextEncode", "inputs": {"text": ""}},
    "2": {"class_type": "KSampler", "inputs": {"seed": 0, "positive": ["1", 0]}},
    "3": {"class_type": "SaveVideo", "inputs": {"filename_prefix": "slate/out"}}
  },
  "mapping": {"promptNode": "1", "seedNode": "2", "prefixNode": "3"}
}`
	if err := os.MkdirAll(cfg.Paths.WorkflowDir, 0o755); err != nil {
		t.Fatalf("mkdir workflow dir: %v", err)
	}
	path := filepath.Join(cfg.Paths.WorkflowDir, id+".json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write workflow profile: %v", err)
	}
	return path
}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
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
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}
