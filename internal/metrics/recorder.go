package metrics

import "time"

// BuildResult labels the outcome of a Builder.Build call.
type BuildResult string

const (
	BuildBuilt  BuildResult = "built"
	BuildReused BuildResult = "reused"
	BuildRemote BuildResult = "remote"
	BuildFailed BuildResult = "failed"
)

// ResolveResult labels the outcome of resolving one asset name.
type ResolveResult string

const (
	ResolveCached  ResolveResult = "cached"
	ResolveBuilt   ResolveResult = "built"
	ResolveUnknown ResolveResult = "unknown"
	ResolveFailed  ResolveResult = "failed"
)

// Recorder defines observability hooks for builds, cache lookups and
// resolution. All methods must be safe to call on a NoopRecorder.
type Recorder interface {
	ObserveBuildDuration(assetType string, d time.Duration)
	IncBuildResult(result BuildResult)
	IncCacheLookup(cache string, hit bool)
	IncResolveResult(result ResolveResult)
	SetRegisteredAssets(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildResult(BuildResult)                 {}
func (NoopRecorder) IncCacheLookup(string, bool)                {}
func (NoopRecorder) IncResolveResult(ResolveResult)             {}
func (NoopRecorder) SetRegisteredAssets(int)                    {}
