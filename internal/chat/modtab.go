package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"icbd/config"
	"icbd/util"
)

// ModTab is the moderator table.  Readers see an immutable sorted
// snapshot that Reload replaces as a whole.  A nil *ModTab has no
// moderators.
type ModTab struct {
	path string
	log  *util.Logger

	snap atomic.Pointer[[]string]

	mu    sync.Mutex // serialises Reload
	mtime time.Time
}

// NewModTab returns an empty table backed by path.  Call Reload to
// read it.
func NewModTab(path string, log *util.Logger) *ModTab {
	mt := &ModTab{path: path, log: log}
	mt.snap.Store(new([]string))
	return mt
}

// ParseModTab reads one nick per line.  Leading blanks are skipped,
// as are empty lines and lines starting with '#'.  At most
// config.MaxModerators entries are kept, each cut to fit a nick, and
// the result is sorted.
func ParseModTab(r io.Reader) ([]string, error) {
	var mods []string
	sc := bufio.NewScanner(r)
	for sc.Scan() && len(mods) < config.MaxModerators {
		line := strings.TrimLeft(sc.Text(), " \t")
		if line == "" || line[0] == '#' {
			continue
		}
		if len(line) > config.MaxNickLen-1 {
			line = line[:config.MaxNickLen-1]
		}
		mods = append(mods, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.Strings(mods)
	return mods, nil
}

// Reload re-reads the file if its modification time changed and it is
// not empty.  On error the previous snapshot stays in place.
func (mt *ModTab) Reload() error {
	if mt == nil || mt.path == "" {
		return nil
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()

	st, err := os.Stat(mt.path)
	if err != nil {
		return fmt.Errorf("modtab: %w", err)
	}
	if st.ModTime().Equal(mt.mtime) || st.Size() == 0 {
		return nil
	}
	f, err := os.Open(mt.path)
	if err != nil {
		return fmt.Errorf("modtab: %w", err)
	}
	defer f.Close()

	mods, err := ParseModTab(f)
	if err != nil {
		return fmt.Errorf("modtab %s: %w", mt.path, err)
	}
	mt.snap.Store(&mods)
	mt.mtime = st.ModTime()
	mt.log.Verbose("modtab: %d moderators", len(mods))
	return nil
}

// IsModerator reports whether nick is listed.
func (mt *ModTab) IsModerator(nick string) bool {
	if mt == nil {
		return false
	}
	mods := *mt.snap.Load()
	i := sort.SearchStrings(mods, nick)
	return i < len(mods) && mods[i] == nick
}

// List returns the current snapshot.  It must not be modified.
func (mt *ModTab) List() []string {
	if mt == nil {
		return nil
	}
	return *mt.snap.Load()
}

// Watch reloads the table whenever its file is written or replaced,
// until ctx is cancelled.  The containing directory is watched so that
// editors that rename over the file are noticed.
func (mt *ModTab) Watch(ctx context.Context) error {
	if mt == nil || mt.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("modtab watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(mt.path)); err != nil {
		return fmt.Errorf("modtab watcher: %w", err)
	}
	name := filepath.Base(mt.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := mt.Reload(); err != nil {
				mt.log.Error("%v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			mt.log.Error("modtab watcher: %v", err)
		}
	}
}
