package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{name: "valid simple path", path: ".fluidgen/models/user.ts"},
		{name: "valid single file", path: "runtime.ts"},
		{name: "dots inside a name", path: "a..b/file.ts"},
		{name: "empty path", path: "", wantErr: true, errMsg: "empty"},
		{name: "absolute path", path: "/absolute/path.ts", wantErr: true, errMsg: "absolute paths not allowed"},
		{name: "lowercase windows drive", path: "c:/path/to/file", wantErr: true, errMsg: "absolute paths not allowed"},
		{name: "uppercase windows drive", path: "D:/path/to/file", wantErr: true, errMsg: "absolute paths not allowed"},
		{name: "path traversal", path: "foo/../bar.ts", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "leading traversal", path: "../foo/bar.ts", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "just ..", path: "..", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "current dir prefix", path: "./foo/bar.ts", wantErr: true, errMsg: "not clean"},
		{name: "double slashes", path: "foo//bar.ts", wantErr: true, errMsg: "not clean"},
		{name: "trailing slash", path: "foo/bar/", wantErr: true, errMsg: "not clean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
				return
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidatePath(%q) error = %v, want error containing %q", tt.path, err, tt.errMsg)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()

	t.Run("write, read and remove", func(t *testing.T) {
		s := NewMemorySink()
		if err := s.WriteFile(ctx, "a.ts", []byte("hello")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got := string(s.Get("a.ts")); got != "hello" {
			t.Errorf("Get() = %q, want %q", got, "hello")
		}
		if err := s.Remove(ctx, "a.ts"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if got := s.Get("a.ts"); got != nil {
			t.Errorf("Get() after Remove = %q, want nil", got)
		}
		if err := s.Remove(ctx, "a.ts"); err != nil {
			t.Errorf("Remove() of missing file error = %v", err)
		}
	})

	t.Run("ReadFile", func(t *testing.T) {
		s := NewMemorySink()
		if _, err := s.ReadFile(ctx, "a.ts"); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("ReadFile() of missing file error = %v, want fs.ErrNotExist", err)
		}
		if err := s.WriteFile(ctx, "a.ts", []byte("a")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, err := s.ReadFile(ctx, "a.ts")
		if err != nil || string(got) != "a" {
			t.Errorf("ReadFile() = %q, %v", got, err)
		}
	})

	t.Run("Files and Get return copies", func(t *testing.T) {
		s := NewMemorySink()
		content := []byte("original")
		if err := s.WriteFile(ctx, "a.ts", content); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		content[0] = 'X'
		s.Files()["a.ts"][0] = 'Y'
		s.Get("a.ts")[0] = 'Z'
		if got := string(s.Get("a.ts")); got != "original" {
			t.Errorf("stored content modified externally: %q", got)
		}
	})

	t.Run("Paths are sorted", func(t *testing.T) {
		s := NewMemorySink()
		for _, p := range []string{"b.ts", "a/c.ts", "a.ts"} {
			if err := s.WriteFile(ctx, p, nil); err != nil {
				t.Fatalf("WriteFile(%q) error = %v", p, err)
			}
		}
		got := strings.Join(s.Paths(), ",")
		if want := "a.ts,a/c.ts,b.ts"; got != want {
			t.Errorf("Paths() = %s, want %s", got, want)
		}
		s.Reset()
		if len(s.Paths()) != 0 {
			t.Errorf("Paths() after Reset = %v", s.Paths())
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		s := NewMemorySink()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.WriteFile(cctx, "a.ts", nil); err == nil {
			t.Error("WriteFile() with cancelled context should fail")
		}
		if err := s.Remove(cctx, "a.ts"); err == nil {
			t.Error("Remove() with cancelled context should fail")
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		s := NewMemorySink()
		if err := s.WriteFile(ctx, "../x.ts", nil); err == nil {
			t.Error("WriteFile() should reject traversal")
		}
	})
}

func TestMemorySink_Concurrent(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("file%d.ts", i)
			if err := s.WriteFile(ctx, path, []byte(path)); err != nil {
				t.Errorf("WriteFile() error = %v", err)
			}
			_ = s.Get(path)
		}()
	}
	wg.Wait()

	if got := len(s.Files()); got != n {
		t.Errorf("len(Files()) = %d, want %d", got, n)
	}
}

func TestFilesystemSink(t *testing.T) {
	ctx := context.Background()

	t.Run("creates parent directories", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		if err := s.WriteFile(ctx, ".fluidgen/models/user.ts", []byte("nested")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, err := os.ReadFile(filepath.Join(dir, ".fluidgen", "models", "user.ts"))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(got) != "nested" {
			t.Errorf("ReadFile() = %q, want %q", got, "nested")
		}
	})

	t.Run("respects file mode", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		s.Mode = 0600
		if err := s.WriteFile(ctx, "a.ts", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		info, err := os.Stat(filepath.Join(dir, "a.ts"))
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if got := info.Mode().Perm(); got != 0600 {
			t.Errorf("Mode = %o, want %o", got, 0600)
		}
	})

	t.Run("overwrites by default", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		for _, content := range []string{"first", "second"} {
			if err := s.WriteFile(ctx, "a.ts", []byte(content)); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
		}
		got, _ := os.ReadFile(filepath.Join(dir, "a.ts"))
		if string(got) != "second" {
			t.Errorf("ReadFile() = %q, want %q", got, "second")
		}
	})

	t.Run("Overwrite=false keeps existing file", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		s.Overwrite = false
		if err := s.WriteFile(ctx, "a.ts", []byte("first")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		err := s.WriteFile(ctx, "a.ts", []byte("second"))
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("second WriteFile() error = %v, want already exists", err)
		}
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		if err := s.WriteFile(ctx, "a.ts", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".fluidgen-") {
				t.Errorf("found temp file after write: %s", e.Name())
			}
		}
	})

	t.Run("read and remove", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		if err := s.WriteFile(ctx, "old/a.ts", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got, err := s.ReadFile(ctx, "old/a.ts"); err != nil || string(got) != "x" {
			t.Errorf("ReadFile() = %q, %v", got, err)
		}
		if err := s.Remove(ctx, "old/a.ts"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "old", "a.ts")); !os.IsNotExist(err) {
			t.Errorf("Stat() after Remove error = %v, want not exist", err)
		}
		if err := s.Remove(ctx, "old/a.ts"); err != nil {
			t.Errorf("Remove() of missing file error = %v", err)
		}
		if _, err := s.ReadFile(ctx, "old/a.ts"); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("ReadFile() after Remove error = %v, want fs.ErrNotExist", err)
		}
	})

	t.Run("rejects unsafe paths", func(t *testing.T) {
		s := NewFilesystemSink(t.TempDir())
		for _, p := range []string{"/etc/passwd", "../escape.ts", "C:/windows.ts"} {
			if err := s.WriteFile(ctx, p, nil); err == nil {
				t.Errorf("WriteFile(%q) should fail", p)
			}
			if err := s.Remove(ctx, p); err == nil {
				t.Errorf("Remove(%q) should fail", p)
			}
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.WriteFile(cctx, "a.ts", nil); err == nil {
			t.Error("WriteFile() with cancelled context should fail")
		}
		if _, err := os.Stat(filepath.Join(dir, "a.ts")); !os.IsNotExist(err) {
			t.Errorf("file written despite cancelled context")
		}
	})
}

func TestFilesystemSink_Concurrent(t *testing.T) {
	dir := t.TempDir()
	s := NewFilesystemSink(dir)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("dir/file%d.ts", i%10)
			if err := s.WriteFile(ctx, path, []byte(path)); err != nil {
				t.Errorf("WriteFile() error = %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(dir, "dir"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("got %d files, want 10", len(entries))
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".fluidgen-") {
			t.Errorf("found temp file after concurrent writes: %s", e.Name())
		}
	}
}
