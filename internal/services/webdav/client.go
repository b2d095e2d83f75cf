package webdav

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"longbox/internal/config"
	"longbox/internal/logging"
)

// ErrRemoteFolderUnavailable indicates the remote folder could not be listed
// even after attempting to create it.
var ErrRemoteFolderUnavailable = errors.New("remote folder unavailable")

// ErrRemoteDownloadFailed indicates a single file could not be fetched.
var ErrRemoteDownloadFailed = errors.New("remote download failed")

// imageExtensions lists the file types considered part of a comic folder.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".tiff": {},
}

// RemoteFile describes one image file inside a remote comic folder.
type RemoteFile struct {
	RelativePath string
	ETag         string
	Size         int64
	ModifiedAt   time.Time
	ContentType  string
}

// FolderInfo is a point-in-time snapshot of a remote folder: its change token
// and the image files directly inside it, in listing order.
type FolderInfo struct {
	Path  string
	ETag  string
	Files []RemoteFile
}

// davClient is the subset of the WebDAV client the folder store uses.
// *gowebdav.Client satisfies it.
type davClient interface {
	ReadDir(path string) ([]os.FileInfo, error)
	Stat(path string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Read(path string) ([]byte, error)
}

// Client reads comic folders from a WebDAV share.
type Client struct {
	dav    davClient
	root   string
	logger *slog.Logger
}

// New builds a client from the configured WebDAV connection settings.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	dav := gowebdav.NewClient(cfg.WebDAV.URL, cfg.WebDAV.Username, cfg.WebDAV.Password)
	if timeout := cfg.WebDAVTimeout(); timeout > 0 {
		dav.SetTimeout(timeout)
	}
	return newWithDAV(dav, cfg.WebDAV.Root, logger)
}

func newWithDAV(dav davClient, root string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		dav:    dav,
		root:   config.NormalizeRemotePath(root),
		logger: logging.WithComponent(logger, "webdav"),
	}
}

// GetFolderInfo lists the image files directly inside a collection folder and
// captures the folder's change token. A missing folder is created once and the
// listing retried; a second failure reports the folder as unavailable.
func (c *Client) GetFolderInfo(ctx context.Context, folderPath string) (*FolderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remotePath := c.remotePath(folderPath)
	entries, err := c.dav.ReadDir(remotePath)
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("%w: list %s: %v", ErrRemoteFolderUnavailable, remotePath, err)
		}

		c.logger.Info("creating missing remote folder", logging.String("path", remotePath))
		if mkErr := c.dav.MkdirAll(remotePath, 0o755); mkErr != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrRemoteFolderUnavailable, remotePath, mkErr)
		}
		entries, err = c.dav.ReadDir(remotePath)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s after create: %v", ErrRemoteFolderUnavailable, remotePath, err)
		}
	}

	info := &FolderInfo{Path: folderPath}
	if stat, statErr := c.dav.Stat(remotePath); statErr == nil {
		info.ETag = etagOf(stat)
	} else {
		c.logger.Warn("folder change token unavailable",
			logging.String("path", remotePath),
			logging.Error(statErr))
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := imageExtensions[strings.ToLower(path.Ext(name))]; !ok {
			continue
		}
		info.Files = append(info.Files, RemoteFile{
			RelativePath: name,
			ETag:         etagOf(entry),
			Size:         entry.Size(),
			ModifiedAt:   entry.ModTime(),
			ContentType:  contentTypeOf(entry),
		})
	}

	return info, nil
}

// DownloadFile fetches the contents of one file inside a collection folder.
func (c *Client) DownloadFile(ctx context.Context, folderPath, relativePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remotePath := path.Join(c.remotePath(folderPath), relativePath)
	data, err := c.dav.Read(remotePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRemoteDownloadFailed, remotePath, err)
	}
	return data, nil
}

func (c *Client) remotePath(folderPath string) string {
	folderPath = config.NormalizeRemotePath(folderPath)
	if c.root == "" || c.root == "/" {
		return folderPath
	}
	if folderPath == "" || folderPath == "/" {
		return c.root
	}
	if strings.HasPrefix(folderPath, c.root+"/") || folderPath == c.root {
		return folderPath
	}
	return c.root + folderPath
}

func isNotFound(err error) bool {
	return gowebdav.IsErrNotFound(err) || errors.Is(err, fs.ErrNotExist)
}

func etagOf(info os.FileInfo) string {
	if tagged, ok := info.(interface{ ETag() string }); ok {
		return tagged.ETag()
	}
	return ""
}

func contentTypeOf(info os.FileInfo) string {
	if typed, ok := info.(interface{ ContentType() string }); ok {
		return typed.ContentType()
	}
	return ""
}
