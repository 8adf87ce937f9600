package frontmatter

import (
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// BlogRootTemplate marks the listing page of the blog, which never gets a card.
const BlogRootTemplate = "blog.html"

var (
	// ErrNoFrontmatter means the +++ fenced block was not found.
	ErrNoFrontmatter = errors.New("no +++ frontmatter block")
	// ErrMissingField means a required field is absent or empty.
	ErrMissingField = errors.New("missing required field")
	// ErrFieldType means a field holds a value of the wrong type.
	ErrFieldType = errors.New("field has wrong type")
)

// frontmatterRE matches a +++ block at the start of the file. Group 1 is the
// TOML body, group 2 the remaining content.
var frontmatterRE = regexp.MustCompile(
	`^[[:space:]]*\+\+\+(\r?\n(?s:.*?))\+\+\+[[:space:]]*(?:$|(?:\r?\n((?s:.*))$))`,
)

// Metadata is the subset of frontmatter the generator cares about.
type Metadata struct {
	Title       string
	Description string
}

// Decision describes why a post was or was not turned into a job.
type Decision int

const (
	// Include means the post gets a card.
	Include Decision = iota
	// ExcludeDraft means the post is a draft.
	ExcludeDraft
	// ExcludeBlogRoot means the post is the blog listing page.
	ExcludeBlogRoot
)

func (d Decision) String() string {
	switch d {
	case Include:
		return "include"
	case ExcludeDraft:
		return "draft"
	case ExcludeBlogRoot:
		return "blog root"
	default:
		return "unknown"
	}
}

// Split returns the raw TOML between the +++ fences.
func Split(contents string) (string, error) {
	m := frontmatterRE.FindStringSubmatch(contents)
	if m == nil {
		return "", ErrNoFrontmatter
	}
	return m[1], nil
}

// Parse extracts the card metadata from a markdown document. The returned
// Metadata is only meaningful when the Decision is Include.
func Parse(contents string) (Metadata, Decision, error) {
	raw, err := Split(contents)
	if err != nil {
		return Metadata{}, Include, err
	}

	var table map[string]any
	if err := toml.Unmarshal([]byte(raw), &table); err != nil {
		return Metadata{}, Include, errors.Wrap(err, "parse frontmatter table")
	}

	if decision := decide(table); decision != Include {
		return Metadata{}, decision, nil
	}

	title, err := requiredString(table, "title")
	if err != nil {
		return Metadata{}, Include, err
	}
	desc, err := requiredString(table, "shortdesc")
	if err != nil {
		return Metadata{}, Include, err
	}
	return Metadata{Title: title, Description: desc}, Include, nil
}

// decide applies the inclusion policy. A draft key holding anything but a
// boolean counts as a draft.
func decide(table map[string]any) Decision {
	if v, ok := table["draft"]; ok {
		draft, isBool := v.(bool)
		if !isBool || draft {
			return ExcludeDraft
		}
	}
	if tpl, ok := table["template"].(string); ok && tpl == BlogRootTemplate {
		return ExcludeBlogRoot
	}
	return Include
}

func requiredString(table map[string]any, key string) (string, error) {
	v, ok := table[key]
	if !ok {
		return "", errors.Wrapf(ErrMissingField, "%s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Wrapf(ErrFieldType, "%s is %T, want string", key, v)
	}
	if s == "" {
		return "", errors.Wrapf(ErrMissingField, "%s is empty", key)
	}
	return s, nil
}
