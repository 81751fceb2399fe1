package blob

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// RunPrefix is the key prefix holding every artifact of one engine run.
func RunPrefix(runID string) string {
	return "runs/" + strings.Trim(runID, "/") + "/"
}

// RunKey joins a run prefix and a slash-separated artifact name.
func RunKey(runID, name string) string {
	return RunPrefix(runID) + strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
}

var contentTypes = map[string]string{
	".ini": "text/plain; charset=utf-8",
	".bc":  "text/plain; charset=utf-8",
	".hyd": "text/plain; charset=utf-8",
	".inp": "text/plain; charset=utf-8",
	".log": "text/plain; charset=utf-8",
	".his": "application/octet-stream",
	".map": "application/octet-stream",
}

// ContentType guesses the artifact media type from its extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// UploadDir copies every regular file under dir to the store below prefix,
// tagging each object with meta. Keys keep the relative slash path.
func UploadDir(ctx context.Context, store Store, prefix, dir string, meta map[string]string) ([]Info, error) {
	var uploaded []Info
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p) //nolint:gosec // walking a directory we staged
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		info, err := store.Put(ctx, prefix+filepath.ToSlash(rel), f, PutOptions{ContentType: ContentType(rel), Metadata: meta})
		if err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
		uploaded = append(uploaded, info)
		return nil
	})
	return uploaded, err
}
