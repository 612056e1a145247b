package persistence

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// CreateBackup copies every chunk file (nodes and edges) into a new
// directory under Dir/backups, named by name, and returns that name. An
// empty name mints a timestamp+uuid name, matching the source's
// createBackup(name?) optional-name surface. The sync ledger is not
// copied: a backup is a snapshot of the durable record stream, not of
// in-flight sync bookkeeping.
func (s *JSONLStore) CreateBackup(name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("backup-%s-%s", time.Now().UTC().Format("20060102T150405Z"), uuid.NewString())
	}
	dest := filepath.Join(s.cfg.Dir, "backups", name)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("persistence: create backup dir: %w", err)
	}

	if err := copyChunkDir(s.nodesDir(), filepath.Join(dest, "nodes")); err != nil {
		return "", err
	}
	if err := copyChunkDir(s.edgesDir(), filepath.Join(dest, "edges")); err != nil {
		return "", err
	}
	return name, nil
}

// RestoreFromBackup replaces the store's current node/edge chunk streams
// with the contents of the named backup directory previously returned by
// CreateBackup. Existing chunks are removed first so stale records from
// the current state don't linger alongside the restored ones. The ledger
// is left alone; callers should treat every record as dirty again
// afterward by re-running StoreNodes/StoreEdges against the restored set,
// or by calling Resync.
func (s *JSONLStore) RestoreFromBackup(name string) error {
	backupDir := filepath.Join(s.cfg.Dir, "backups", name)
	if _, err := os.Stat(backupDir); err != nil {
		return fmt.Errorf("persistence: backup %s: %w", name, err)
	}
	if err := replaceChunkDir(filepath.Join(backupDir, "nodes"), s.nodesDir()); err != nil {
		return err
	}
	if err := replaceChunkDir(filepath.Join(backupDir, "edges"), s.edgesDir()); err != nil {
		return err
	}
	return nil
}

// Resync reloads every node and edge from disk and marks each dirty in the
// ledger again, for use after RestoreFromBackup when downstream consumers
// (vector indices, mirrors) need to catch up to the restored state.
func (s *JSONLStore) Resync() error {
	nodes, err := s.LoadNodes(LoadOptions{})
	if err != nil {
		return err
	}
	names, err := listChunks(s.nodesDir(), "nodes")
	if err != nil {
		return err
	}
	latest := ""
	if len(names) > 0 {
		latest = names[len(names)-1]
	}
	for _, n := range nodes {
		if err := s.ledger.MarkDirty(n.ID, RecordKindNode, latest); err != nil {
			return err
		}
	}

	edges, err := s.LoadEdges(LoadOptions{})
	if err != nil {
		return err
	}
	names, err = listChunks(s.edgesDir(), "edges")
	if err != nil {
		return err
	}
	latest = ""
	if len(names) > 0 {
		latest = names[len(names)-1]
	}
	for _, e := range edges {
		if err := s.ledger.MarkDirty(e.ID, RecordKindEdge, latest); err != nil {
			return err
		}
	}
	return nil
}

func copyChunkDir(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("persistence: create backup subdir: %w", err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("persistence: read %s: %w", src, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func replaceChunkDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("persistence: clear %s: %w", dst, err)
	}
	return copyChunkDir(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("persistence: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("persistence: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("persistence: copy %s: %w", src, err)
	}
	return out.Close()
}
