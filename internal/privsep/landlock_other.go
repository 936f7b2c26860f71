//go:build !linux

package privsep

// allowList is a no-op where Landlock is unavailable.
func allowList(opts Options) error {
	opts.Logger.Debug("no allow-list support on this platform")
	return nil
}
