package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	t.Setenv(EnvDriver, "")
	t.Setenv(EnvFSRoot, filepath.Join(t.TempDir(), "blobs"))
	s, err := Open(context.Background())
	if err != nil || s.Driver() != DriverFilesystem {
		t.Fatalf("expected filesystem default, got %v %v", s, err)
	}

	t.Setenv(EnvDriver, string(DriverMemory))
	if s, err := Open(context.Background()); err != nil || s.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %v", err)
	}

	t.Setenv(EnvDriver, string(DriverS3))
	t.Setenv("HYDROCORE_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}

	t.Setenv(EnvDriver, "ftp")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestRunKeys(t *testing.T) {
	if got := RunKey("run-7", "/output/flow.his"); got != "runs/run-7/output/flow.his" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := RunPrefix("/run-7/"); got != "runs/run-7/" {
		t.Fatalf("unexpected prefix %s", got)
	}
	cases := map[string]string{
		"network.ini": "text/plain; charset=utf-8",
		"out.HIS":     "application/octet-stream",
		"report.json": "application/json",
		"noext":       "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%s) = %s, want %s", name, got, want)
		}
	}
}

func TestUploadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "output"), 0o750); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{"flow.log": "done", "output/flow.his": "bin"} {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	store := NewMemory()
	prefix := RunPrefix("r1")
	infos, err := UploadDir(context.Background(), store, prefix, dir, map[string]string{"run": "r1"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "runs/r1/flow.log" || infos[1].Key != "runs/r1/output/flow.his" {
		t.Fatalf("unexpected uploads %+v", infos)
	}
	if infos[1].Metadata["run"] != "r1" || infos[1].ContentType != "application/octet-stream" {
		t.Fatalf("unexpected attributes %+v", infos[1])
	}
	if _, err := UploadDir(context.Background(), store, prefix, dir, nil); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists on second upload, got %v", err)
	}
}
