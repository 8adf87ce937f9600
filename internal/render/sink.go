package render

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const imageFileMode = 0o644

// writeImage replaces the file at path with data. The bytes go to a temp file
// in the same directory first so a failed write never leaves a truncated card.
func writeImage(path string, data []byte) error {
	if len(data) == 0 {
		return errors.Newf("empty screenshot for %s", path)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Chmod(imageFileMode); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}
