package detector

import (
	"strings"
	"testing"
	"time"

	"longbox/internal/services/webdav"
	"longbox/internal/store"
)

func TestEvaluateRunTriggers(t *testing.T) {
	snapshot := &webdav.FolderInfo{
		ETag: `"v2"`,
		Files: []webdav.RemoteFile{
			{RelativePath: "a.jpg"},
			{RelativePath: "b.jpg"},
		},
	}

	cases := []struct {
		name    string
		last    *store.SyncStatus
		wantRun bool
		reason  string
	}{
		{
			name:    "never synced",
			last:    nil,
			wantRun: true,
			reason:  "never synced",
		},
		{
			name:    "change token moved",
			last:    &store.SyncStatus{LastFolderETag: `"v1"`, TotalFileCount: 2},
			wantRun: true,
			reason:  "change token moved",
		},
		{
			name:    "file count changed",
			last:    &store.SyncStatus{LastFolderETag: `"v2"`, TotalFileCount: 3},
			wantRun: true,
			reason:  "file count changed",
		},
		{
			name:    "unchanged folder",
			last:    &store.SyncStatus{LastFolderETag: `"v2"`, TotalFileCount: 2},
			wantRun: false,
			reason:  "unchanged",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Evaluate(snapshot, tc.last)
			if decision.Run != tc.wantRun {
				t.Fatalf("Run = %v, want %v (%s)", decision.Run, tc.wantRun, decision.Reason)
			}
			if !strings.Contains(decision.Reason, tc.reason) {
				t.Fatalf("reason = %q, want substring %q", decision.Reason, tc.reason)
			}
		})
	}
}

func TestEvaluateRunsWhenTokenAppears(t *testing.T) {
	snapshot := &webdav.FolderInfo{ETag: `"v1"`, Files: []webdav.RemoteFile{{RelativePath: "a.jpg"}}}
	last := &store.SyncStatus{LastFolderETag: "", TotalFileCount: 1}

	if decision := Evaluate(snapshot, last); !decision.Run {
		t.Fatalf("expected run when change token first appears, got %+v", decision)
	}
}

func TestSelectEligible(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	files := []webdav.RemoteFile{
		{RelativePath: "new.jpg", ETag: `"n1"`, Size: 10, ModifiedAt: base},
		{RelativePath: "same.jpg", ETag: `"s1"`, Size: 20, ModifiedAt: base},
		{RelativePath: "etag.jpg", ETag: `"e2"`, Size: 30, ModifiedAt: base},
		{RelativePath: "size.jpg", ETag: "", Size: 41, ModifiedAt: base},
		{RelativePath: "mtime.jpg", ETag: "", Size: 50, ModifiedAt: base.Add(time.Minute)},
	}
	records := map[string]*store.ProcessedFile{
		"same.jpg":  {FileETag: `"s1"`, FileSize: 20, FileModifiedAt: base},
		"etag.jpg":  {FileETag: `"e1"`, FileSize: 30, FileModifiedAt: base},
		"size.jpg":  {FileETag: "", FileSize: 40, FileModifiedAt: base},
		"mtime.jpg": {FileETag: "", FileSize: 50, FileModifiedAt: base},
	}

	eligible := SelectEligible(files, records)
	got := make(map[string]bool, len(eligible))
	for _, file := range eligible {
		got[file.RelativePath] = true
	}

	want := []string{"new.jpg", "etag.jpg", "size.jpg", "mtime.jpg"}
	if len(eligible) != len(want) {
		t.Fatalf("eligible = %v, want %v", got, want)
	}
	for _, path := range want {
		if !got[path] {
			t.Fatalf("expected %s eligible, got %v", path, got)
		}
	}
	if got["same.jpg"] {
		t.Fatal("unchanged file should not be eligible")
	}
}

func TestSelectEligibleSkipsUnchangedFailedFile(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	files := []webdav.RemoteFile{
		{RelativePath: "bad.jpg", ETag: `"b1"`, Size: 10, ModifiedAt: base},
	}
	records := map[string]*store.ProcessedFile{
		"bad.jpg": {FileETag: `"b1"`, FileSize: 10, FileModifiedAt: base, Status: store.FileFailed, ErrorMessage: "decode error"},
	}

	if eligible := SelectEligible(files, records); len(eligible) != 0 {
		t.Fatalf("expected unchanged failed file to stay skipped, got %v", eligible)
	}
}
