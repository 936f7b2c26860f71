package logsink

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"icbd/internal/errors"
	"icbd/internal/metrics"
	"icbd/util"
)

// ChildFlag makes the daemon binary run as the logger process.
const ChildFlag = "--logger-child"

// childFD is the descriptor the logger process finds its end of the
// socket pair on.
const childFD = 3

// Child is a running logger process as seen from the parent.
type Child struct {
	*Client
	conn net.Conn
	cmd  *exec.Cmd
}

// Spawn creates the socket pair and starts the running executable as
// the logger process with ChildFlag followed by args.  Failures carry
// EX_OSERR.
func Spawn(args []string, queue int, log *util.Logger, m *metrics.Collector) (*Child, error) {
	parent, child, err := socketPair()
	if err != nil {
		return nil, errors.Exit(errors.ExitOSErr, err)
	}
	defer child.Close()

	exe, err := os.Executable()
	if err != nil {
		parent.Close()
		return nil, errors.Exit(errors.ExitOSErr, fmt.Errorf("logger: %w", err))
	}
	cmd := exec.Command(exe, append([]string{ChildFlag}, args...)...)
	cmd.ExtraFiles = []*os.File{child} // becomes childFD
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		parent.Close()
		return nil, errors.Exit(errors.ExitOSErr, fmt.Errorf("logger: %w", err))
	}

	conn, err := net.FileConn(parent)
	parent.Close()
	if err != nil {
		cmd.Process.Kill() //nolint:errcheck
		cmd.Wait()         //nolint:errcheck
		return nil, errors.Exit(errors.ExitOSErr, fmt.Errorf("logger: %w", err))
	}
	log.Debug("logger process %d started", cmd.Process.Pid)

	return &Child{
		Client: NewClient(conn, queue, log, m),
		conn:   conn,
		cmd:    cmd,
	}, nil
}

// Close flushes pending records, closes the channel and waits for the
// logger process, which exits on end of file.
func (c *Child) Close() error {
	if c == nil {
		return nil
	}
	c.Client.Close() //nolint:errcheck
	c.conn.Close()
	return c.cmd.Wait()
}

// socketPair returns both ends of a close-on-exec SOCK_SEQPACKET pair.
func socketPair() (parent, child *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return os.NewFile(uintptr(fds[0]), "logsink"), os.NewFile(uintptr(fds[1]), "logsink-child"), nil
}

// ChildChannel returns the logger process's end of the socket pair.
func ChildChannel() (net.Conn, error) {
	f := os.NewFile(childFD, "logsink")
	if f == nil {
		return nil, errors.Exit(errors.ExitOSErr, errors.New("logger: no channel descriptor"))
	}
	defer f.Close()
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, errors.Exit(errors.ExitOSErr, fmt.Errorf("logger: %w", err))
	}
	return conn, nil
}

// OpenSink opens the destination for log lines: path in append mode,
// or stderr when path is empty.
func OpenSink(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o640)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
