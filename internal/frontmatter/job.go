package frontmatter

import (
	"path/filepath"
	"strings"
)

// ImageExt is the extension given to every generated card.
const ImageExt = ".png"

// Job is one card to render. It is produced once per source post and never
// mutated afterwards.
type Job struct {
	Title       string
	Description string
	// OutputPath is the sibling of Source named <stem>.png.
	OutputPath string
	// Source is the markdown file the job was read from.
	Source string
}

// ImagePath derives the card path for a markdown source file.
func ImagePath(source string) string {
	dir, name := filepath.Split(source)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, stem+ImageExt)
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}
