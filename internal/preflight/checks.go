package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/medlit/medsearch/internal/index"
	"github.com/medlit/medsearch/internal/profiling"
	"github.com/medlit/medsearch/internal/store"
	"github.com/medlit/medsearch/internal/structured"
)

// MinDiskSpaceBytes is the minimum required free disk space (100MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// probeTimeout bounds the embedder and database reachability probes.
const probeTimeout = 5 * time.Second

// CheckDiskSpace checks free space at the index directory (or its
// nearest existing parent).
func (c *Checker) CheckDiskSpace(dir string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	probe := nearestExisting(dir)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(probe, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: 100 MB)", profiling.FormatBytes(available))
	if available < MinDiskSpaceBytes {
		result.Status = StatusFail
	} else {
		result.Status = StatusPass
	}
	return result
}

// CheckIndexDirWritable verifies the index directory can be created
// and written.
func (c *Checker) CheckIndexDirWritable(dir string) CheckResult {
	result := CheckResult{Name: "index_dir_writable", Required: true}

	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	probe := filepath.Join(dir, ".preflight")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return result
	}
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = dir
	return result
}

// CheckArtifacts inspects the persisted index artifacts. A missing
// index is a warning (nothing has been built yet); unreadable vector
// metadata on an existing index is a failure.
func (c *Checker) CheckArtifacts(dir string) CheckResult {
	result := CheckResult{Name: "index_artifacts", Required: false}

	paths := index.ArtifactPaths(dir)
	dimensions, err := store.ReadHNSWStoreDimensions(paths.Vector)
	if err != nil {
		result.Status = StatusFail
		result.Required = true
		result.Message = fmt.Sprintf("vector metadata unreadable: %v", err)
		return result
	}
	if dimensions == 0 {
		result.Status = StatusWarn
		result.Message = "no index built yet, run 'medsearch index'"
		return result
	}

	for _, p := range []string{paths.Lexical, paths.Catalog} {
		if _, err := os.Stat(p); err != nil {
			result.Status = StatusFail
			result.Required = true
			result.Message = fmt.Sprintf("artifact missing: %s", p)
			return result
		}
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("index present (%d-dimensional embeddings)", dimensions)
	return result
}

// CheckEmbedder probes the embedding provider.
func (c *Checker) CheckEmbedder(ctx context.Context, name string, prober AvailabilityProber) CheckResult {
	result := CheckResult{Name: "embedder", Required: true}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if !prober.Available(probeCtx) {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not reachable", name)
		return result
	}

	result.Status = StatusPass
	result.Message = name
	return result
}

// CheckStructuredDB verifies the configured trial database opens and
// responds. The structured backend is optional, so problems warn
// rather than fail.
func (c *Checker) CheckStructuredDB(ctx context.Context, path string) CheckResult {
	result := CheckResult{Name: "structured_db", Required: false}

	if path == "" {
		result.Status = StatusPass
		result.Message = "not configured"
		return result
	}

	adapter, err := structured.Open(path)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot open %s: %v", path, err)
		return result
	}
	defer func() { _ = adapter.Close() }()

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if !adapter.Available(probeCtx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s does not respond to queries", path)
		return result
	}

	result.Status = StatusPass
	result.Message = path
	return result
}

// nearestExisting walks up from dir to the first path that exists, so
// disk space can be checked before the index directory is created.
func nearestExisting(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
