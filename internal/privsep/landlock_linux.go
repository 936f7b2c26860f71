//go:build linux

package privsep

import (
	"fmt"

	"github.com/landlock-lsm/go-landlock/landlock"
)

// dnsPort is the only outbound TCP port left open.
const dnsPort = 53

// allowList makes the filesystem read-only, forbids binding new TCP
// sockets and forbids outbound TCP except to DNS when enabled.
// Kernels without Landlock are left unrestricted.
func allowList(opts Options) error {
	if err := landlock.V4.BestEffort().Restrict(allowRules(opts)...); err != nil {
		return fmt.Errorf("landlock: %w", err)
	}
	opts.Logger.Debug("landlock restrictions applied")
	return nil
}

func allowRules(opts Options) []landlock.Rule {
	rules := []landlock.Rule{landlock.RODirs("/")}
	if opts.AllowDNS {
		rules = append(rules, landlock.ConnectTCP(dnsPort))
	}
	return rules
}
