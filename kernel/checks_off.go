//go:build kernel_nocheck

package kernel

// Release builds trust callers and the kernel itself. Stack overflow is still
// detected.
const (
	usageChecks    = false
	internalChecks = false
)
