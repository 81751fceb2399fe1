package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"hydrocore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	meta := map[string]string{"run": "r1"}
	info, err := s.Put(ctx, "r1/flow.log", strings.NewReader("ok"), core.PutOptions{ContentType: "text/plain", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["run"] = "mutated"
	if info.Size != 2 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "r1/flow.log", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := s.Get(ctx, "r1/flow.log")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "ok" || got.Metadata["run"] != "r1" {
		t.Fatalf("metadata must be copied on put: %q %+v", body, got)
	}
	got.Metadata["run"] = "changed"
	head, _ := s.Head(ctx, "r1/flow.log")
	if head.Metadata["run"] != "r1" {
		t.Fatalf("metadata must be copied on read")
	}
	if ok, _ := s.Delete(ctx, "r1/flow.log"); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if _, err := s.Head(ctx, "r1/flow.log"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "r1/flow.log"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndPresign(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"b/2", "a/1", "b/1"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	infos, _ := s.List(ctx, "b/")
	if len(infos) != 2 || infos[0].Key != "b/1" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	if _, err := s.PresignURL(ctx, "a/1", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported")
	}
	if _, err := s.Put(ctx, " ", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Put(cancelled, "c", strings.NewReader(""), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
