package persistence

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// chunkFileName builds "<prefix>-000001.jsonl" style names, zero-padded so
// lexicographic and numeric ordering agree.
func chunkFileName(prefix string, index int) string {
	return fmt.Sprintf("%s-%06d.jsonl", prefix, index)
}

// listChunks returns chunk file paths under dir in ascending index order.
func listChunks(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix+"-") && strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// latestChunkIndex returns the highest existing chunk index for prefix, or
// -1 if none exist yet.
func latestChunkIndex(dir, prefix string) (int, error) {
	names, err := listChunks(dir, prefix)
	if err != nil {
		return -1, err
	}
	if len(names) == 0 {
		return -1, nil
	}
	last := names[len(names)-1]
	trimmed := strings.TrimSuffix(strings.TrimPrefix(last, prefix+"-"), ".jsonl")
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("persistence: malformed chunk name %s: %w", last, err)
	}
	return idx, nil
}

// appendChunked appends count records (written by writeFn) to the active
// chunk file, rolling to a new chunk first if the active one is already at
// or past MaxFileSize or adding count records would take it past
// MaxItemsPerFile. Returns the chunk file name
// records ultimately written to, for the caller's ledger bookkeeping.
func (s *JSONLStore) appendChunked(dir, prefix string, count int, writeFn func(*bufio.Writer) error) (string, error) {
	idx, err := latestChunkIndex(dir, prefix)
	if err != nil {
		return "", err
	}
	if idx < 0 {
		idx = 0
	}
	path := filepath.Join(dir, chunkFileName(prefix, idx))

	if shouldRoll, err := s.chunkNeedsRoll(path, count); err != nil {
		return "", err
	} else if shouldRoll {
		idx++
		path = filepath.Join(dir, chunkFileName(prefix, idx))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("persistence: open chunk %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeFn(w); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("persistence: flush chunk %s: %w", path, err)
	}
	return filepath.Base(path), nil
}

func (s *JSONLStore) chunkNeedsRoll(path string, incoming int) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persistence: stat chunk %s: %w", path, err)
	}
	if info.Size() >= s.cfg.MaxFileSize {
		return true, nil
	}
	existing, err := countLines(path)
	if err != nil {
		return false, err
	}
	return existing+incoming > s.cfg.MaxItemsPerFile, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("persistence: open chunk %s: %w", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// forEachChunk streams every record line from every chunk file under dir,
// in chunk order, without loading the whole directory into memory at once.
func forEachChunk(dir, prefix string, fn func(line []byte) error) error {
	names, err := listChunks(dir, prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := func() error {
			f, err := os.Open(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("persistence: open chunk %s: %w", name, err)
			}
			defer f.Close()
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				if err := fn(line); err != nil {
					return err
				}
			}
			return scanner.Err()
		}(); err != nil {
			return err
		}
	}
	return nil
}

// rewriteAll replaces every chunk under dir with a freshly chunked stream of
// total records, writeBatch(i) writing record i, used by
// DeleteNodes/DeleteEdges. It removes existing chunk files first so
// deletions don't leave stale tombstoned records behind in earlier chunks,
// then re-chunks at MaxItemsPerFile boundaries rather than writing every
// surviving record into one oversized file.
func (s *JSONLStore) rewriteAll(dir, prefix string, total int, writeBatch func(w *bufio.Writer, i int) error) error {
	names, err := listChunks(dir, prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("persistence: remove chunk %s: %w", name, err)
		}
	}
	if total == 0 {
		return nil
	}

	batchSize := s.cfg.MaxItemsPerFile
	if batchSize <= 0 {
		batchSize = total
	}
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		if _, err := s.appendChunked(dir, prefix, end-start, func(w *bufio.Writer) error {
			for i := start; i < end; i++ {
				if err := writeBatch(w, i); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// chunkStats returns file count, total bytes, and total record count across
// every chunk under dir.
func chunkStats(dir, prefix string) (files int, bytes int64, records int64, err error) {
	names, err := listChunks(dir, prefix)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, statErr := os.Stat(path)
		if statErr != nil {
			return 0, 0, 0, fmt.Errorf("persistence: stat chunk %s: %w", name, statErr)
		}
		bytes += info.Size()
		n, err := countLines(path)
		if err != nil {
			return 0, 0, 0, err
		}
		records += int64(n)
	}
	files = len(names)
	return files, bytes, records, nil
}
