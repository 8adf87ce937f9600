package server

import (
	"io/fs"
	"net/http"
	"path"
)

// staticHandler serves files beneath root. Directories resolve to their
// index.html; a directory without one is reported as missing instead of
// being listed.
func staticHandler(root string) http.Handler {
	return http.FileServer(noListingFS{http.Dir(root)})
}

type noListingFS struct {
	http.FileSystem
}

func (nfs noListingFS) Open(name string) (http.File, error) {
	f, err := nfs.FileSystem.Open(name)
	if err != nil {
		return nil, err //nolint:wrapcheck // FileServer maps fs errors to status codes
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err //nolint:wrapcheck // see above
	}
	if !info.IsDir() {
		return f, nil
	}
	index, err := nfs.FileSystem.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	_ = index.Close()
	return f, nil
}
