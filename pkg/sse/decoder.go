package sse

import (
	"bufio"
	"bytes"
	"io"
)

// Frame is one server-sent event: an optional event name and an optional
// data payload. Frames are separated by blank lines on the wire.
type Frame struct {
	Event string
	Data  string
}

// Empty reports whether the frame carries neither an event name nor data.
func (f Frame) Empty() bool {
	return f.Event == "" && f.Data == ""
}

// Decoder reads event frames from a byte stream. It accumulates lines until
// a blank line closes the frame, then scans each line for an "event:" or
// "data:" field prefix.
type Decoder struct {
	reader *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the next frame, or io.EOF once the stream is exhausted. A
// final frame not terminated by a blank line is still returned; the EOF
// surfaces on the following call.
func (d *Decoder) Next() (Frame, error) {
	var lines [][]byte
	for {
		line, err := d.reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				if len(lines) > 0 {
					return parseFrame(lines), nil
				}
				return Frame{}, err
			}
			if len(lines) == 0 {
				// leading blank line, keep scanning
				continue
			}
			return parseFrame(lines), nil
		}

		lines = append(lines, line)
		if err != nil {
			return parseFrame(lines), nil
		}
	}
}

// parseFrame scans accumulated lines for "field: value" pairs. Multiple data
// lines are joined with newlines, matching the SSE framing rules.
func parseFrame(lines [][]byte) Frame {
	frame := Frame{}
	for _, line := range lines {
		line = bytes.TrimRight(line, "\r\n")

		parts := bytes.SplitN(line, []byte(":"), 2)
		if len(parts) != 2 {
			continue
		}

		field := string(parts[0])
		value := string(bytes.TrimPrefix(parts[1], []byte(" ")))
		switch field {
		case "event":
			frame.Event = value
		case "data":
			if frame.Data != "" {
				frame.Data += "\n"
			}
			frame.Data += value
		default:
			// Ignore unknown fields
		}
	}
	return frame
}
