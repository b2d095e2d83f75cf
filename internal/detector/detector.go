package detector

import (
	"fmt"

	"longbox/internal/services/webdav"
	"longbox/internal/store"
)

// Decision reports whether a sync pass should run and why.
type Decision struct {
	Run    bool
	Reason string
}

// Evaluate compares a fresh folder snapshot against the persisted outcome of
// the previous pass. A pass runs when the folder has never been synced, when
// its change token moved, or when the number of files changed. Anything else
// is treated as an unchanged folder.
func Evaluate(snapshot *webdav.FolderInfo, last *store.SyncStatus) Decision {
	if last == nil {
		return Decision{Run: true, Reason: "never synced"}
	}
	if snapshot.ETag != last.LastFolderETag {
		return Decision{
			Run:    true,
			Reason: fmt.Sprintf("folder change token moved from %s to %s", tokenLabel(last.LastFolderETag), tokenLabel(snapshot.ETag)),
		}
	}
	if len(snapshot.Files) != last.TotalFileCount {
		return Decision{
			Run:    true,
			Reason: fmt.Sprintf("file count changed from %d to %d", last.TotalFileCount, len(snapshot.Files)),
		}
	}
	return Decision{Reason: "folder unchanged"}
}

// SelectEligible filters a folder snapshot down to the files that need
// processing. A file is eligible when it has no record or when its change
// token, size, or modification time differs from the recorded one. Each file
// is judged on its own; a failed neighbor never blocks it.
func SelectEligible(files []webdav.RemoteFile, records map[string]*store.ProcessedFile) []webdav.RemoteFile {
	var eligible []webdav.RemoteFile
	for _, file := range files {
		record, ok := records[file.RelativePath]
		if !ok || fileChanged(file, record) {
			eligible = append(eligible, file)
		}
	}
	return eligible
}

func fileChanged(file webdav.RemoteFile, record *store.ProcessedFile) bool {
	if file.ETag != "" && record.FileETag != "" && file.ETag != record.FileETag {
		return true
	}
	if file.Size != record.FileSize {
		return true
	}
	if !file.ModifiedAt.Equal(record.FileModifiedAt) {
		return true
	}
	return false
}

func tokenLabel(token string) string {
	if token == "" {
		return "(none)"
	}
	return token
}
