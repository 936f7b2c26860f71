package logsink

import (
	"fmt"
	"io"
	"time"

	"icbd/internal/errors"
	"icbd/util"
)

// Reader is the logger process's side of the channel.
type Reader struct {
	In  io.Reader // one Read returns one record
	Out io.Writer
	Log *util.Logger
}

// Serve writes every received record to Out as
//
//	<RFC 3339 time> <nick>@<group>: <text>
//
// until the peer goes away, which returns nil.  A read that does not
// even hold a header is fatal and carries EX_DATAERR.  Text longer than
// the scratch buffer is cut and marked " [truncated]".
func (r *Reader) Serve() error {
	buf := make([]byte, HeaderSize+ScratchSize)
	for {
		n, err := r.In.Read(buf)
		if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Exit(errors.ExitDataErr, fmt.Errorf("logger read: %w", err))
		}
		h, herr := DecodeHeader(buf[:n])
		if herr != nil {
			return errors.Exit(errors.ExitDataErr, fmt.Errorf("logger read: %w", herr))
		}

		text := buf[HeaderSize:n]
		mark := ""
		if uint64(len(text)) < h.Length {
			r.Log.Error("logger read %d out of %d", len(text), h.Length)
			mark = " [truncated]"
		} else {
			text = text[:h.Length]
		}
		if _, err := fmt.Fprintf(r.Out, "%s %s@%s: %s%s\n",
			h.Time.Format(time.RFC3339), h.Nick, h.Group, text, mark); err != nil {
			r.Log.Error("logger: %v", err)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
