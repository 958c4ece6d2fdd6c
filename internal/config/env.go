package config

import "os"

// Environment variables read by the bridge.
const (
	EnvDev        = "FLOWBRIDGE_DEV"
	EnvDevMode    = "DEV_MODE"
	EnvBinaryPath = "FLOW_BINARY_PATH"
	EnvCacheDir   = "FLOW_CACHE_DIR"
	EnvShell      = "SHELL"
)

var trackedEnv = []string{EnvDev, EnvDevMode, EnvBinaryPath, EnvCacheDir, EnvShell}

// DefaultBinary is the flow executable name resolved through PATH.
const DefaultBinary = "flow"

// Environment is a snapshot of the variables the bridge reads. It is taken
// once at startup so later changes to the process environment have no effect.
type Environment struct {
	values map[string]string
}

// EnvironmentFromOS snapshots the tracked variables from the process.
func EnvironmentFromOS() Environment {
	values := make(map[string]string, len(trackedEnv))
	for _, key := range trackedEnv {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}
	return Environment{values: values}
}

// EnvironmentFromMap builds an Environment from explicit values.
func EnvironmentFromMap(m map[string]string) Environment {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = v
	}
	return Environment{values: values}
}

// Lookup returns the value of key and whether it was set.
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Get returns the value of key, or "" when unset.
func (e Environment) Get(key string) string {
	return e.values[key]
}

// BinaryConfig says how to locate the flow executable. It is immutable after
// construction.
type BinaryConfig struct {
	// BinaryPath is an absolute path, or a bare name resolved through PATH.
	BinaryPath string
	// DevMode enables verbose logging and the FLOW_BINARY_PATH override.
	DevMode bool
}

// DebugBuild reports whether version marks an unreleased build.
func DebugBuild(version string) bool {
	return version == "" || version == "dev"
}

// IsDevMode is true for debug builds, when FLOWBRIDGE_DEV is set to anything,
// or when DEV_MODE is exactly "true".
func IsDevMode(env Environment, debugBuild bool) bool {
	if debugBuild {
		return true
	}
	if _, ok := env.Lookup(EnvDev); ok {
		return true
	}
	return env.Get(EnvDevMode) == "true"
}

// ResolveBinary derives the BinaryConfig. FLOW_BINARY_PATH is honoured only
// in dev mode and used verbatim.
func ResolveBinary(env Environment, debugBuild bool) BinaryConfig {
	dev := IsDevMode(env, debugBuild)
	path := DefaultBinary
	if dev {
		if override, ok := env.Lookup(EnvBinaryPath); ok && override != "" {
			path = override
		}
	}
	return BinaryConfig{BinaryPath: path, DevMode: dev}
}
