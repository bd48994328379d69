// Package tailer reads newly appended lines from append-only log files.
//
// A Reader keeps its own read cursor (a byte offset) and an open handle. It
// is driven by the caller, typically on a filesystem change notification;
// it never polls and never blocks waiting for data.
//
//	r, err := tailer.Open("/var/log/lpreserver/lpreserver.log", 0)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	lines, err := r.ReadUnread()
//
// Only lines terminated by a newline are consumed, so a writer caught in the
// middle of a line is picked up on the next read. When a file becomes shorter
// than the cursor (truncate-style rotation) the cursor restarts at 0.
package tailer
