//go:build !kernel_nocheck

package kernel

const (
	usageChecks    = true
	internalChecks = true
)
