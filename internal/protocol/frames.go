package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"

	"ecoweave/internal/logging"
)

// dataPrefix marks lines that carry an event payload. Anything else on the
// stream (blank keep-alives, comment lines) is ignored.
const dataPrefix = "data: "

// readBufSize is the chunk size used by DecodeStream.
const readBufSize = 4096

// Parser reassembles line-framed events from arbitrary byte chunks. Chunk
// boundaries carry no meaning: a partial trailing line is buffered until the
// next Feed completes it.
type Parser struct {
	buf []byte
}

// Feed appends a chunk and returns every event completed by it, in stream
// order. Malformed payloads are logged and skipped so one bad frame cannot
// poison the stream.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := p.buf[:idx]
		p.buf = p.buf[idx+1:]

		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte(dataPrefix)) {
			continue
		}
		payload := bytes.TrimPrefix(line, []byte(dataPrefix))

		ev, err := ParseEvent(payload)
		if err != nil {
			logging.Warn("skipping malformed frame", "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events
}

// Close discards any buffered partial line. A line never terminated by the
// producer is treated as noise, not as an event.
func (p *Parser) Close() {
	if len(p.buf) > 0 {
		logging.Debug("discarding unterminated frame tail", "bytes", len(p.buf))
	}
	p.buf = nil
}

// DecodeStream reads r to EOF, feeding a Parser and invoking fn for each
// decoded event in order. It stops early if ctx is cancelled or fn returns an
// error. EOF is a normal end of stream.
func DecodeStream(ctx context.Context, r io.Reader, fn func(Event) error) error {
	p := &Parser{}
	defer p.Close()

	buf := make([]byte, readBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			for _, ev := range p.Feed(buf[:n]) {
				if err := fn(ev); err != nil {
					return err
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}
