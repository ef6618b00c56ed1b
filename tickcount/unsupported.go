//go:build !amd64

package tickcount

// Time-stamp counter readers exist for 64-bit x86 only.
var _ int = "tickcount: unsupported platform, amd64 is required"
