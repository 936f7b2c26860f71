//go:build linux

package privsep

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dropToChildEnv = "ICBD_DROPTO_CHILD"

// taskField returns the value of key in every /proc/self/task/*/status.
func taskField(t *testing.T, key string) map[string]string {
	t.Helper()
	paths, err := filepath.Glob("/proc/self/task/*/status")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	out := make(map[string]string, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue // thread exited
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if v, ok := strings.CutPrefix(sc.Text(), key+":"); ok {
				out[p] = strings.Join(strings.Fields(v), " ")
				break
			}
		}
		f.Close()
	}
	return out
}

// The credential change is irreversible, so it runs in a re-executed
// copy of the test binary.
func TestDropTo_AllThreads(t *testing.T) {
	if os.Getenv(dropToChildEnv) == "1" {
		dropToAllThreadsChild(t)
		return
	}
	if os.Getuid() != 0 {
		t.Skip("requires root")
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestDropTo_AllThreads$", "-test.v")
	cmd.Env = append(os.Environ(), dropToChildEnv+"=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s", out)
}

func dropToAllThreadsChild(t *testing.T) {
	// Park goroutines on their own OS threads so the process has
	// several threads besides the one calling DropTo.
	stop := make(chan struct{})
	defer close(stop)
	ready := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			ready <- struct{}{}
			<-stop
		}()
	}
	for i := 0; i < 4; i++ {
		<-ready
	}

	require.NoError(t, DropTo(&Account{Name: "nobody", UID: 65534, GID: 65534, Home: "/"}))

	groups := taskField(t, "Groups")
	require.GreaterOrEqual(t, len(groups), 5)
	for task, g := range groups {
		assert.Equal(t, "65534", g, "%s kept supplementary groups", task)
	}
	for task, uid := range taskField(t, "Uid") {
		assert.Equal(t, "65534 65534 65534 65534", uid, task)
	}
}
