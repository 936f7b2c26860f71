package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, environment variable loading and the packages that
// size buffers from them.

const (
	// DefaultPort is the registered ICB port.
	DefaultPort = 7326

	// DefaultUser is the unprivileged account both processes drop to.
	DefaultUser = "_icbd"

	// DefaultWorkDir is entered (best effort) after the chroot.
	DefaultWorkDir = "icbd"

	// DefaultLoginGroup always exists; most clients log in to it.
	DefaultLoginGroup = "1"

	// DefaultAcceptCooldown is how long a listener stays paused after
	// the descriptor table fills up.
	DefaultAcceptCooldown = time.Second

	// DefaultResolveTimeout bounds a single reverse lookup.
	DefaultResolveTimeout = 5 * time.Second

	// DefaultLogQueue is the capacity of the chat-log record queue.
	DefaultLogQueue = 256

	// DefaultEventQueue is the capacity of the event loop's queue.
	DefaultEventQueue = 1024

	// DefaultOutputQueue caps packets waiting to be written to a
	// single client.
	DefaultOutputQueue = 128
)

// ── Protocol limits ──────────────────────────────────────────────────

const (
	// MaxGroupLen and MaxNickLen include the terminating NUL.
	MaxGroupLen = 32
	MaxNickLen  = 32

	// MaxModerators caps the moderator table.
	MaxModerators = 50
)
