// Package version identifies the running mailcheck build. Release builds set
// the variables with -ldflags; other builds fall back to the module version
// and VCS stamp recorded by the Go toolchain.
package version
