package video

import "fmt"

// SourceOpenError reports an input that could not be opened.
type SourceOpenError struct {
	Path string
	Err  error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("open source %q: %v", e.Path, e.Err)
}

func (e *SourceOpenError) Unwrap() error { return e.Err }

// SinkOpenError reports an output that could not be created.
type SinkOpenError struct {
	Path string
	Err  error
}

func (e *SinkOpenError) Error() string {
	return fmt.Sprintf("create sink %q: %v", e.Path, e.Err)
}

func (e *SinkOpenError) Unwrap() error { return e.Err }

// FrameDecodeError reports a single frame that could not be decoded from an
// otherwise open source.
type FrameDecodeError struct {
	Index int
	Err   error
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("decode frame %d: %v", e.Index, e.Err)
}

func (e *FrameDecodeError) Unwrap() error { return e.Err }
