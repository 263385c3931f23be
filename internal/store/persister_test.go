package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFilePersister_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	if err != nil {
		t.Fatalf("new file persister: %v", err)
	}

	if _, err := p.Load(ctx, "resume-storage"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := p.Save(ctx, "resume-storage", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := p.Load(ctx, "resume-storage")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("unexpected content %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "resume-storage.json" {
		t.Fatalf("unexpected files in dir: %v", entries)
	}
}

func TestFilePersister_SanitizesKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, _ := NewFilePersister(dir)

	if err := p.Save(ctx, "resume-storage:../../etc", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected file inside dir, got %v", matches)
	}
}

type fakeRedisKV struct {
	values map[string]string
	err    error
}

func (f *fakeRedisKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedisKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestRedisPersister_SaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := &fakeRedisKV{values: map[string]string{}}
	p := NewRedisPersister(kv)

	if _, err := p.Load(ctx, "resume-storage:s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := p.Save(ctx, "resume-storage:s1", []byte("blob")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := p.Load(ctx, "resume-storage:s1")
	if err != nil || string(got) != "blob" {
		t.Fatalf("load: %q %v", got, err)
	}
}

func TestRedisPersister_WrapsErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	p := NewRedisPersister(&fakeRedisKV{values: map[string]string{}, err: boom})

	if _, err := p.Load(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := p.Save(ctx, "k", []byte("x")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
