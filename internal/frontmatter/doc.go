// Package frontmatter walks a tree of markdown posts and turns each eligible
// post's TOML frontmatter into a render job.
//
// A post is eligible when its frontmatter block parses, it is not a draft and
// it is not the blog's listing page (template = "blog.html"). Eligible posts
// must carry string `title` and `shortdesc` fields. Files that do not qualify
// are skipped with a diagnostic; the scan itself never fails.
package frontmatter
