package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"glhost/internal/util"
)

// CleanupResult contains the result of a cleanup operation
type CleanupResult struct {
	RemovedStaging []string // Staging directories left by interrupted rebuilds
	RemovedRoot    bool     // Whether the cache root itself was removed
	Errors         []error  // Any errors encountered
}

// CleanStaleStaging removes staging directories of root left behind by a
// crashed rebuild. Callers must hold the cache lock.
func CleanStaleStaging(root string) *CleanupResult {
	result := &CleanupResult{}
	parent := filepath.Dir(root)

	entries, err := os.ReadDir(parent)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, fmt.Errorf("failed to list %s: %w", parent, err))
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() || !isStagingName(root, entry.Name()) {
			continue
		}
		dir := filepath.Join(parent, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to remove %s: %w", dir, err))
			continue
		}
		log.WithField("dir", dir).Info("Removed stale staging directory")
		result.RemovedStaging = append(result.RemovedStaging, dir)
	}
	return result
}

// Clean removes the cache root and every staging directory of it.
// Callers must hold the cache lock.
func Clean(ctx context.Context, root string) *CleanupResult {
	result := CleanStaleStaging(root)

	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, err)
		}
		return result
	}

	err := util.Retry(ctx, func() error {
		return os.RemoveAll(root)
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to remove %s: %w", root, err))
		return result
	}
	result.RemovedRoot = true
	return result
}

// FormatCleanupResult formats a cleanup result for display
func FormatCleanupResult(result *CleanupResult) string {
	var parts []string

	if result.RemovedRoot {
		parts = append(parts, "Removed cache directory")
	}

	if len(result.RemovedStaging) > 0 {
		parts = append(parts, fmt.Sprintf("Removed %d stale staging director(y/ies):", len(result.RemovedStaging)))
		for _, d := range result.RemovedStaging {
			parts = append(parts, fmt.Sprintf("  - %s", d))
		}
	}

	if len(result.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Encountered %d error(s):", len(result.Errors)))
		for _, e := range result.Errors {
			parts = append(parts, fmt.Sprintf("  - %s", e.Error()))
		}
	}

	if len(parts) == 0 {
		return "No cleanup needed"
	}

	return strings.Join(parts, "\n")
}
