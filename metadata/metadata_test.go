package metadata

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type serverMeta struct {
	TraceEvents []string `yaml:"TraceEvents"`
	StartCount  int      `yaml:"StartCount"`
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "gethook.yaml")
	f, err := Open(path, func() serverMeta { return serverMeta{StartCount: 1} })
	if err != nil {
		t.Fatal(err)
	}
	if f.Get().StartCount != 1 {
		t.Fatalf("data = %+v", f.Get())
	}
	if _, err = os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if _, err = os.Stat(BackupPath(path)); !os.IsNotExist(err) {
		t.Fatalf("backup written for a new file: %v", err)
	}
	if f.String() != "gethook.yaml" {
		t.Fatalf("name = %s", f)
	}
}

func TestUpdateKeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gethook.yaml")
	f, err := Open(path, func() serverMeta { return serverMeta{StartCount: 1} })
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Update(func(m *serverMeta) {
		m.StartCount++
		m.TraceEvents = []string{"ChatText"}
	}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open[serverMeta](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := serverMeta{StartCount: 2, TraceEvents: []string{"ChatText"}}
	if !reflect.DeepEqual(reopened.Get(), want) {
		t.Fatalf("reopened = %+v", reopened.Get())
	}

	backup, err := read[serverMeta](BackupPath(path))
	if err != nil || backup.StartCount != 1 {
		t.Fatalf("backup = %+v, %v", backup, err)
	}
}

func TestCorruptFileFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gethook.yaml")
	if err := os.WriteFile(BackupPath(path), []byte("StartCount: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("StartCount: [broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open[serverMeta](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if f.Get().StartCount != 7 {
		t.Fatalf("data = %+v", f.Get())
	}

	os.Remove(BackupPath(path))
	if _, err = Open[serverMeta](path, nil); err == nil {
		t.Fatal("corrupt file without backup opened")
	}
}

func TestWriteAfterFallbackKeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gethook.yaml")
	if err := os.WriteFile(BackupPath(path), []byte("StartCount: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("StartCount: [broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open[serverMeta](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Update(func(m *serverMeta) { m.StartCount++ }); err != nil {
		t.Fatal(err)
	}
	backup, err := read[serverMeta](BackupPath(path))
	if err != nil || backup.StartCount != 7 {
		t.Fatalf("backup after first write = %+v, %v", backup, err)
	}

	if err = f.Update(func(m *serverMeta) { m.StartCount++ }); err != nil {
		t.Fatal(err)
	}
	backup, err = read[serverMeta](BackupPath(path))
	if err != nil || backup.StartCount != 8 {
		t.Fatalf("backup after second write = %+v, %v", backup, err)
	}
	if f.Get().StartCount != 9 {
		t.Fatalf("data = %+v", f.Get())
	}
}

func TestBackupPath(t *testing.T) {
	if got := BackupPath(filepath.Join("data", "meta.yaml")); got != filepath.Join("data", "meta.bak") {
		t.Fatalf("backup path = %s", got)
	}
}
