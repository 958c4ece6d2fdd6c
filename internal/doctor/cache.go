package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/flowexec/flowbridge/internal/cache"
)

// CacheCheck verifies the workspace cache file exists and decodes.
type CacheCheck struct {
	Path string
}

func (c *CacheCheck) Name() string     { return "workspace_cache" }
func (c *CacheCheck) Category() string { return "CACHE" }

func (c *CacheCheck) Run(_ context.Context) CheckResult {
	if c.Path == "" {
		return result(c, StatusFail, "Cannot determine cache location", "Set FLOW_CACHE_DIR")
	}
	if _, err := os.Stat(c.Path); err != nil {
		if os.IsNotExist(err) {
			return result(c, StatusWarn, "Workspace cache not found at "+c.Path,
				"Run 'flow sync' to build it")
		}
		return result(c, StatusFail, "Cannot access "+c.Path, "Check file permissions")
	}

	data, err := cache.Load(c.Path)
	if err != nil {
		return result(c, StatusFail, "Workspace cache unreadable: "+firstLine(err.Error()),
			"Run 'flow sync' to rebuild it")
	}
	return result(c, StatusPass, fmt.Sprintf("%d workspace%s cached (%s)", data.Len(), pluralize(data.Len()), c.Path), "")
}
