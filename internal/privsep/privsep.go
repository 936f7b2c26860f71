// Package privsep confines the daemon once its sockets are bound: it
// chroots into the unprivileged account's home directory, switches to
// that account and, where the kernel supports it, installs an
// allow-list of the operations still needed.
package privsep

import (
	"fmt"
	"os/user"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"icbd/internal/errors"
	"icbd/util"
)

// Options select the account and the allow-list.
type Options struct {
	User    string // account to switch to
	WorkDir string // entered after the chroot if it exists
	// AllowDNS keeps outbound TCP to port 53 for resolver fallback.
	AllowDNS bool
	Logger   *util.Logger
}

// Account is a resolved passwd entry.
type Account struct {
	Name string
	UID  int
	GID  int
	Home string
}

// Lookup resolves name.  A missing account carries EX_NOUSER.
func Lookup(name string) (*Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return nil, errors.Exit(errors.ExitNoUser, fmt.Errorf("no passwd entry for %s", name))
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, errors.Exit(errors.ExitNoUser, fmt.Errorf("%s: uid %q: %w", name, u.Uid, err))
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, errors.Exit(errors.ExitNoUser, fmt.Errorf("%s: gid %q: %w", name, u.Gid, err))
	}
	return &Account{Name: u.Username, UID: uid, GID: gid, Home: u.HomeDir}, nil
}

// Restrict looks up opts.User and jails the process in its home.
func Restrict(opts Options) error {
	acct, err := Lookup(opts.User)
	if err != nil {
		return err
	}
	return Jail(acct, opts)
}

// Jail confines the process to acct:
//
//  1. the home directory must be owned by root and not writable by
//     group or others (EX_NOPERM);
//  2. chroot into it and chdir to the new root (EX_UNAVAILABLE), then
//     try to enter opts.WorkDir;
//  3. switch groups, gid and uid (EX_NOPERM);
//  4. install the allow-list (EX_NOPERM unless unsupported).
func Jail(acct *Account, opts Options) error {
	if err := CheckHome(acct.Home); err != nil {
		return err
	}
	if err := unix.Chroot(acct.Home); err != nil {
		return errors.Exit(errors.ExitUnavailable, fmt.Errorf("chroot %s: %w", acct.Home, err))
	}
	if err := unix.Chdir("/"); err != nil {
		return errors.Exit(errors.ExitUnavailable, fmt.Errorf("chdir /: %w", err))
	}
	if opts.WorkDir != "" {
		if err := unix.Chdir(opts.WorkDir); err != nil {
			opts.Logger.Verbose("chdir %s: %v", opts.WorkDir, err)
		}
	}
	if err := setIDs(acct); err != nil {
		return err
	}
	if err := allowList(opts); err != nil {
		return errors.Exit(errors.ExitNoPerm, err)
	}
	opts.Logger.Debug("running as %s in %s", acct.Name, acct.Home)
	return nil
}

// DropTo switches to acct without a chroot and changes to its home
// directory.  The logger process uses it.
func DropTo(acct *Account) error {
	if err := setIDs(acct); err != nil {
		return err
	}
	if err := unix.Chdir(acct.Home); err != nil {
		return errors.Exit(errors.ExitUnavailable, fmt.Errorf("chdir %s: %w", acct.Home, err))
	}
	return nil
}

// CheckHome verifies the ownership and mode of a chroot directory.
func CheckHome(dir string) error {
	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		return errors.Exit(errors.ExitNoPerm, fmt.Errorf("stat %s: %w", dir, err))
	}
	if err := checkMode(st.Uid, uint32(st.Mode)); err != nil {
		return errors.Exit(errors.ExitNoPerm, fmt.Errorf("%s: %w", dir, err))
	}
	return nil
}

func checkMode(uid, mode uint32) error {
	if uid != 0 || mode&(unix.S_IWGRP|unix.S_IWOTH) != 0 {
		return errors.ErrBadPermissions
	}
	return nil
}

// setIDs changes credentials on every thread.  unix.Setgroups is
// per-thread on Linux; syscall.Setgroups is not.
func setIDs(acct *Account) error {
	if err := syscall.Setgroups([]int{acct.GID}); err != nil {
		return errors.Exit(errors.ExitNoPerm, fmt.Errorf("setgroups: %w", err))
	}
	if err := unix.Setgid(acct.GID); err != nil {
		return errors.Exit(errors.ExitNoPerm, fmt.Errorf("setgid %d: %w", acct.GID, err))
	}
	if err := unix.Setuid(acct.UID); err != nil {
		return errors.Exit(errors.ExitNoPerm, fmt.Errorf("setuid %d: %w", acct.UID, err))
	}
	return nil
}
