package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func newFSStore(t *testing.T) *FilesystemStore {
	t.Helper()
	s, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	return s
}

func TestFilesystemPutGetRoundTrip(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "snapshots/one.json", strings.NewReader(`{"v":3}`), PutOptions{
		ContentType: "application/json",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" {
		t.Fatalf("info = %+v", info)
	}

	got, rc, err := s.Get(ctx, "snapshots/one.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != `{"v":3}` {
		t.Fatalf("data = %q", data)
	}
	if got.ContentType != "application/json" || got.ETag != info.ETag {
		t.Fatalf("meta lost: %+v", got)
	}
}

func TestFilesystemRejectsTraversalKeys(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs/path", "a/../../b"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func TestFilesystemPutIsCreateOnly(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("1"), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("2"), PutOptions{}); err == nil {
		t.Fatal("overwrite accepted")
	}
}

func TestFilesystemMissingKey(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	if _, _, err := s.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get err = %v", err)
	}
	if _, err := s.Head(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("head err = %v", err)
	}
	if ok, err := s.Delete(ctx, "ghost"); err != nil || ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
}

func TestFilesystemListFiltersMetaSidecars(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	for _, key := range []string{"exports/b.json", "exports/a.json", "misc/c"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("infos = %+v", infos)
	}
	if infos[0].Key != "exports/a.json" || infos[1].Key != "exports/b.json" {
		t.Fatalf("order = %v, %v", infos[0].Key, infos[1].Key)
	}
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".meta") {
			t.Fatalf("meta sidecar leaked into listing: %q", info.Key)
		}
	}
}

func TestFilesystemPresignOnlyGet(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	if _, err := s.PresignURL(ctx, "k", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("CANVASCORE_BLOB_DRIVER", "memory")
	s, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Driver() != DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}

	t.Setenv("CANVASCORE_BLOB_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
