package publish

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"sessionreel/internal/fileutil"
)

// LocalUploader copies artifacts into Root/<destination>/.
type LocalUploader struct {
	Root string
}

// Upload implements Uploader.
func (l *LocalUploader) Upload(ctx context.Context, localPath, displayName, destination string) (Remote, error) {
	if err := ctx.Err(); err != nil {
		return Remote{}, err
	}
	dir, err := l.destinationDir(destination)
	if err != nil {
		return Remote{}, err
	}
	target := filepath.Join(dir, filepath.Base(displayName))
	digest, err := fileutil.CopyVerified(localPath, target)
	if err != nil {
		return Remote{}, fmt.Errorf("copy to %s: %w", target, err)
	}
	link := url.URL{Scheme: "file", Path: filepath.ToSlash(target)}
	return Remote{ID: digest, Name: filepath.Base(target), Link: link.String()}, nil
}

// destinationDir keeps destinations inside Root.
func (l *LocalUploader) destinationDir(destination string) (string, error) {
	root := filepath.Clean(l.Root)
	dir := filepath.Join(root, filepath.FromSlash(destination))
	if dir != root && !strings.HasPrefix(dir, root+string(filepath.Separator)) {
		return "", fmt.Errorf("destination %q escapes publish root", destination)
	}
	return dir, nil
}
