package provider

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// FrontMatter is the YAML header shared by authored resource files,
// regardless of which backend hosts them.
type FrontMatter struct {
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Tags            []string `yaml:"tags"`
	Capabilities    []string `yaml:"capabilities"`
	UseWhen         []string `yaml:"use_when"`
	EstimatedTokens int      `yaml:"estimated_tokens"`
	Dependencies    []string `yaml:"dependencies"`
	Related         []string `yaml:"related"`
}

const frontMatterFence = "---"

// SplitFrontMatter separates a resource file's YAML header from its body.
// Files without a header are valid; the zero FrontMatter is returned.
func SplitFrontMatter(content string) (FrontMatter, string, error) {
	var fm FrontMatter

	trimmed := strings.TrimPrefix(content, "\uFEFF")
	if !strings.HasPrefix(trimmed, frontMatterFence) {
		return fm, content, nil
	}

	rest := trimmed[len(frontMatterFence):]
	end := strings.Index(rest, "\n"+frontMatterFence)
	if end < 0 {
		return fm, "", fmt.Errorf("unterminated front matter")
	}

	header := rest[:end]
	body := rest[end+len(frontMatterFence)+1:]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, "", fmt.Errorf("front matter: %w", err)
	}
	return fm, body, nil
}

// EstimateTokens approximates token count at 4 characters per token, the
// usual rule of thumb for English markdown.
func EstimateTokens(body string) int {
	return len(body) / 4
}

// ApplyFrontMatter fills metadata fields from a parsed header, falling back
// to the id for the title and a length estimate for the token count.
func ApplyFrontMatter(m *Metadata, fm FrontMatter, body string) {
	m.Title = fm.Title
	m.Description = fm.Description
	m.Tags = fm.Tags
	m.Capabilities = fm.Capabilities
	m.UseWhen = fm.UseWhen
	m.EstimatedTokens = fm.EstimatedTokens
	if m.Title == "" {
		m.Title = m.ID
	}
	if m.EstimatedTokens == 0 {
		m.EstimatedTokens = EstimateTokens(body)
	}
}
