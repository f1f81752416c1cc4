package buildlog_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spachava753/clangforge/internal/buildlog"
)

func TestStageWriterRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	sink, err := buildlog.NewSink(dir)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	w, err := sink.StageWriter("build")
	if err != nil {
		t.Fatalf("StageWriter failed: %v", err)
	}

	payload := strings.Repeat("[1/4096] CXX lib/Support/foo.cpp.o\n", 1000)
	if _, err := w.Write([]byte(payload)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := sink.Read("build")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte(payload)) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}

	// Repetitive tool output must actually compress.
	info, err := os.Stat(filepath.Join(dir, "build.log.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len(payload)) {
		t.Errorf("log did not compress: %d >= %d", info.Size(), len(payload))
	}
}
