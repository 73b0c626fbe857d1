package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The text trace holds one event per line:
//
//	<pc-hex> <target-hex> <taken 0|1> <size> <flags>
//
// flags is "-" or any combination of b (control flow), c (call) and
// r (return). Blank lines and lines starting with '#' are skipped.

// Reader reads events from a text trace.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next implements Feed.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		e, err := ParseEvent(text)
		if err != nil {
			return Event{}, fmt.Errorf("line %d: %w", r.line, err)
		}

		return e, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("failed to read trace: %w", err)
	}

	return Event{}, io.EOF
}

// ParseEvent parses a single trace line.
func ParseEvent(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Event{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	var e Event
	var err error

	if e.PC, err = parseHex(fields[0]); err != nil {
		return Event{}, fmt.Errorf("bad pc %q: %w", fields[0], err)
	}
	if e.Target, err = parseHex(fields[1]); err != nil {
		return Event{}, fmt.Errorf("bad target %q: %w", fields[1], err)
	}

	switch fields[2] {
	case "0":
	case "1":
		e.Taken = true
	default:
		return Event{}, fmt.Errorf("bad taken flag %q", fields[2])
	}

	size, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil || size == 0 {
		return Event{}, fmt.Errorf("bad size %q", fields[3])
	}
	e.Size = uint32(size)

	if fields[4] != "-" {
		for _, c := range fields[4] {
			switch c {
			case 'b':
				e.IsControlFlow = true
			case 'c':
				e.IsCall = true
			case 'r':
				e.IsReturn = true
			default:
				return Event{}, fmt.Errorf("bad flag %q", c)
			}
		}
	}

	if (e.IsCall || e.IsReturn) && !e.IsControlFlow {
		return Event{}, fmt.Errorf("call or return must be control flow")
	}

	return e, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// FormatEvent renders e as a trace line.
func FormatEvent(e Event) string {
	taken := 0
	if e.Taken {
		taken = 1
	}

	flags := ""
	if e.IsControlFlow {
		flags += "b"
	}
	if e.IsCall {
		flags += "c"
	}
	if e.IsReturn {
		flags += "r"
	}
	if flags == "" {
		flags = "-"
	}

	return fmt.Sprintf("%#x %#x %d %d %s", e.PC, e.Target, taken, e.Size, flags)
}

// Writer writes events as a text trace.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one event.
func (w *Writer) Write(e Event) error {
	if _, err := fmt.Fprintln(w.w, FormatEvent(e)); err != nil {
		return fmt.Errorf("failed to write trace event: %w", err)
	}
	return nil
}

// WriteAll writes every event delivered by feed.
func (w *Writer) WriteAll(feed Feed) error {
	for {
		e, err := feed.Next()
		if err == io.EOF {
			return w.Flush()
		}
		if err != nil {
			return err
		}
		if err := w.Write(e); err != nil {
			return err
		}
	}
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
