package github

import (
	"path"
	"strings"

	"github.com/orchestr8/federation/internal/provider"
)

// Layout describes how a repository arranges its resource files.
type Layout string

const (
	// LayoutNested keeps files under category directories: agents/foo.md.
	LayoutNested Layout = "nested"
	// LayoutFlat keeps files at the root with a category suffix: foo.agent.md.
	LayoutFlat Layout = "flat"
	// LayoutMixed combines both conventions in one repository.
	LayoutMixed Layout = "mixed"
)

// flatSuffixes maps flat-layout filename suffixes to categories.
var flatSuffixes = map[string]provider.Category{
	".agent.md":    provider.CategoryAgents,
	".skill.md":    provider.CategorySkills,
	".command.md":  provider.CategoryCommands,
	".template.md": provider.CategoryTemplates,
	".hook.md":     provider.CategoryHooks,
}

// classifyPath maps a repo-relative path to a category, trying the nested
// convention first, then the flat suffix convention.
func classifyPath(p string) (provider.Category, bool) {
	if !strings.HasSuffix(p, ".md") {
		return "", false
	}

	if dir, _, found := strings.Cut(p, "/"); found {
		if cat, ok := provider.ParseCategory(dir); ok {
			return cat, true
		}
	}

	base := path.Base(p)
	for suffix, cat := range flatSuffixes {
		if strings.HasSuffix(base, suffix) {
			return cat, true
		}
	}
	return "", false
}

// detectLayout inspects classified paths and names the repository layout.
func detectLayout(paths []string) Layout {
	var nested, flat bool
	for _, p := range paths {
		if dir, _, found := strings.Cut(p, "/"); found {
			if _, ok := provider.ParseCategory(dir); ok {
				nested = true
				continue
			}
		}
		base := path.Base(p)
		for suffix := range flatSuffixes {
			if strings.HasSuffix(base, suffix) {
				flat = true
				break
			}
		}
	}

	switch {
	case nested && flat:
		return LayoutMixed
	case flat:
		return LayoutFlat
	default:
		return LayoutNested
	}
}

// resourceID builds the composite id {owner}/{repo}/{path}.
func resourceID(rc RepoConfig, repoPath string) string {
	return rc.Slug() + "/" + repoPath
}

// splitResourceID breaks a composite id back into its repo and path parts.
func splitResourceID(id string) (owner, repo, repoPath string, ok bool) {
	parts := strings.SplitN(id, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// displayTitle derives a human title from a path: strip directories, the
// category suffix, and the extension.
func displayTitle(p string) string {
	base := path.Base(p)
	for suffix := range flatSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return strings.TrimSuffix(base, ".md")
}
