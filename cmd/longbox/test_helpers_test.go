package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"longbox/internal/config"
	"longbox/internal/daemon"
	"longbox/internal/logging"
	"longbox/internal/progress"
	"longbox/internal/services/recognizer"
	"longbox/internal/services/webdav"
	"longbox/internal/store"
	"longbox/internal/syncer"
	"longbox/internal/testsupport"
	"longbox/internal/watcher"
)

type stubFolderSource struct {
	snapshots map[string]*webdav.FolderInfo
	contents  map[string][]byte
}

func (s *stubFolderSource) GetFolderInfo(ctx context.Context, folderPath string) (*webdav.FolderInfo, error) {
	if snapshot, ok := s.snapshots[folderPath]; ok {
		return snapshot, nil
	}
	return &webdav.FolderInfo{Path: folderPath}, nil
}

func (s *stubFolderSource) DownloadFile(ctx context.Context, folderPath, relativePath string) ([]byte, error) {
	if data, ok := s.contents[folderPath+"/"+relativePath]; ok {
		return data, nil
	}
	return []byte("image-bytes"), nil
}

type stubBatchSubmitter struct {
	sessions []string
}

func (s *stubBatchSubmitter) Submit(ctx context.Context, sessionID string, files []recognizer.FilePayload) error {
	s.sessions = append(s.sessions, sessionID)
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	daemon     *daemon.Daemon
	registry   *progress.Registry
	folders    *stubFolderSource
	submitter  *stubBatchSubmitter
	apiURL     string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 0
	cfg.Sessions.CloseGrace = 0

	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	registry := progress.NewRegistry(cfg, st, logger)

	folders := &stubFolderSource{
		snapshots: map[string]*webdav.FolderInfo{},
		contents:  map[string][]byte{},
	}
	submitter := &stubBatchSubmitter{}
	sync := syncer.New(cfg, st, folders, submitter, registry, logger)
	watch := watcher.NewManager(cfg, st, sync, registry, nil, logger)

	d, err := daemon.New(cfg, st, logger, watch, registry, sync, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		daemon:     d,
		registry:   registry,
		folders:    folders,
		submitter:  submitter,
		apiURL:     "http://" + d.APIAddr(),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--api", env.apiURL, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = %q

[webdav]
url = %q
username = %q
password = %q

[recognizer]
url = %q
api_key = %q
callback_base_url = %q
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.WebDAV.URL,
		cfg.WebDAV.Username,
		cfg.WebDAV.Password,
		cfg.Recognizer.URL,
		cfg.Recognizer.APIKey,
		cfg.Recognizer.CallbackBaseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedSyncedSession registers a collection with one remote file and runs a
// sync pass through the CLI so a recognition session exists.
func seedSyncedSession(t *testing.T, env *cliTestEnv) string {
	t.Helper()

	out, _, err := runCLI(t, env, "collections", "add", "weekly", "--folder", "/weekly")
	if err != nil {
		t.Fatalf("collections add: %v", err)
	}
	requireContains(t, out, "Added collection")

	env.folders.snapshots["/weekly"] = &webdav.FolderInfo{
		Path: "/weekly",
		ETag: "v1",
		Files: []webdav.RemoteFile{
			{RelativePath: "issue-001.jpg", ETag: "f1", Size: 11, ContentType: "image/jpeg"},
		},
	}

	if _, _, err := runCLI(t, env, "sync"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(env.submitter.sessions) == 0 {
		t.Fatal("expected a submitted session")
	}
	return env.submitter.sessions[len(env.submitter.sessions)-1]
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
