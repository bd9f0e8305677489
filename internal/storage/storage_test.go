package storage

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/har2grinder/internal/trace"
	"github.com/go-json-experiment/json"
)

const minimalHAR = `{"log":{"pages":[{"id":"page_1","title":"Home"}],"entries":[
  {"pageref":"page_1","request":{"method":"GET","url":"http://a.example/","headers":[]}}]}}`

func TestWriteTracePlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.har", "nested/out.har.gz"} {
		path := filepath.Join(dir, name)
		if err := WriteTrace(path, []byte(minimalHAR)); err != nil {
			t.Fatalf("WriteTrace(%s) error = %v", name, err)
		}
		tr, err := trace.Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", name, err)
		}
		if len(tr.Exchanges) != 1 {
			t.Fatalf("Load(%s) exchanges = %d, want 1", name, len(tr.Exchanges))
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "nested/out.har.gz"))
	if err != nil {
		t.Fatalf("read gz: %v", err)
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		t.Fatalf("gz output is not gzip-compressed")
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.py")
	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "two" {
		t.Fatalf("content = %q, %v; want two", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only the target file", len(entries))
	}
}

func TestJournalWritesLines(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, "session", 16, 1)
	j.now = func() time.Time { return time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC) }

	type record struct {
		Seq int    `json:"seq"`
		URL string `json:"url"`
	}
	for i := 1; i <= 3; i++ {
		if err := j.Write(record{Seq: i, URL: "http://a.example/"}); err != nil {
			t.Fatalf("Write(%d) error = %v", i, err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := j.Write(record{}); err != ErrJournalClosed {
		t.Fatalf("Write after Close = %v, want ErrJournalClosed", err)
	}

	f, err := os.Open(filepath.Join(dir, "2026-03-04", "session.jsonl"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var seqs []int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad journal line %q: %v", sc.Text(), err)
		}
		seqs = append(seqs, r.Seq)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Fatalf("journal seqs = %v, want [1 2 3]", seqs)
	}
}
