package local

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orchestr8/federation/internal/provider"
)

// parseResourceFile reads a resource file and splits its front matter from
// the body. Files without a front matter block are still valid; metadata
// falls back to filename-derived defaults.
func parseResourceFile(path string, cat provider.Category, providerName string) (provider.Metadata, provider.FrontMatter, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return provider.Metadata{}, provider.FrontMatter{}, "", err
	}

	fm, body, err := provider.SplitFrontMatter(string(raw))
	if err != nil {
		return provider.Metadata{}, fm, "", fmt.Errorf("%s: %w", path, err)
	}

	meta := provider.Metadata{
		ID:        strings.TrimSuffix(filepath.Base(path), ".md"),
		Category:  cat,
		Provider:  providerName,
		SourceURI: path,
	}
	provider.ApplyFrontMatter(&meta, fm, body)
	return meta, fm, body, nil
}
