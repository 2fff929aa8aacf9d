package progress

import (
	"bytes"
	"io"
	"sync"
)

// SyncWriter serialises writes from concurrent goroutines onto one writer.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

// Write implements io.Writer
func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// StreamWriter wraps an io.Writer to stream output with prefixes. Each
// complete line reaches the underlying writer in a single Write call, so
// lines from different StreamWriters sharing a SyncWriter never interleave.
type StreamWriter struct {
	writer io.Writer
	prefix string
	buffer []byte
}

// NewStreamWriter creates a new stream writer with a prefix
func NewStreamWriter(w io.Writer, prefix string) *StreamWriter {
	return &StreamWriter{
		writer: w,
		prefix: prefix,
		buffer: make([]byte, 0, 4096),
	}
}

// Write implements io.Writer
func (sw *StreamWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	sw.buffer = append(sw.buffer, p...)

	consumed := 0
	for {
		idx := bytes.IndexByte(sw.buffer[consumed:], '\n')
		if idx == -1 {
			break
		}
		end := consumed + idx + 1
		if err = sw.emit(sw.buffer[consumed:end]); err != nil {
			break
		}
		consumed = end
	}

	// keep the partial line at the start of the buffer
	sw.buffer = append(sw.buffer[:0], sw.buffer[consumed:]...)
	return
}

// Flush writes any remaining buffered content as a final line
func (sw *StreamWriter) Flush() error {
	if len(sw.buffer) == 0 {
		return nil
	}
	line := append(sw.buffer, '\n')
	sw.buffer = sw.buffer[:0]
	return sw.emit(line)
}

func (sw *StreamWriter) emit(line []byte) error {
	out := make([]byte, 0, len(sw.prefix)+len(line))
	out = append(out, sw.prefix...)
	out = append(out, line...)
	_, err := sw.writer.Write(out)
	return err
}
