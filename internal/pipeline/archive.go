package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zombor/spesen-tracker/internal/cache"
	"github.com/zombor/spesen-tracker/internal/expense"
)

// Archiver moves finalized receipts into a dated archive tree:
// <root>/2025/11_November/<name>. Only finalized files are archived;
// failed files stay in place for inspection and retry.
type Archiver struct {
	Root string
}

// Archive moves path into the subtree for date. Calling it again for the
// same content is a no-op success: when the destination already holds a
// file with the same fingerprint the move is considered complete. A name
// collision with different content gets a counter suffix instead of an
// overwrite.
func (a *Archiver) Archive(path string, fp cache.Fingerprint, date time.Time) (string, error) {
	dir := filepath.Join(a.Root, filepath.FromSlash(expense.MonthDir(date.Year(), int(date.Month()))))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating archive dir: %v", ErrArchive, err)
	}

	target := filepath.Join(dir, filepath.Base(path))
	target, done, err := a.resolveTarget(target, fp)
	if err != nil {
		return "", err
	}
	if done {
		// Content already archived; finish an interrupted move by
		// dropping the leftover source, if any.
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				return "", fmt.Errorf("%w: removing archived source: %v", ErrArchive, err)
			}
		}
		return target, nil
	}

	if err := moveFile(path, target); err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return target, nil
}

// resolveTarget finds a destination path that is either free or already
// holds this exact content. done is true in the latter case.
func (a *Archiver) resolveTarget(target string, fp cache.Fingerprint) (string, bool, error) {
	base := target
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	for counter := 0; ; counter++ {
		candidate := base
		if counter > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, counter, ext)
		}

		existing, err := os.ReadFile(candidate)
		if os.IsNotExist(err) {
			return candidate, false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("%w: reading archive target: %v", ErrArchive, err)
		}
		if cache.Compute(existing) == fp {
			return candidate, true, nil
		}
	}
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %v", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating target: %v", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying to archive: %v", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing target: %v", err)
	}
	return os.Remove(src)
}
