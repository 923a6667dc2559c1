// Package tblog records fitting progress on disk: TensorBoard event files
// for scalars and images, a plain text log, and PNG snapshots.
package tblog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File and directory names inside a log directory.
const (
	TextLogName = "log.txt"
	VisualDir   = "vis"
	eventPrefix = "events.out.tfevents"
)

// Writer implements the fitting Logger on a log directory.
//
// Logging calls never return errors; the first failure is kept and
// reported by Err and Close, and later calls become no-ops.
type Writer struct {
	mu     sync.Mutex
	dir    string
	events *os.File
	buf    *bufio.Writer
	text   *os.File
	echo   io.Writer
	now    func() time.Time
	err    error
}

// NewWriter creates dir and opens a fresh event file and the text log in
// it. Text lines are also copied to echo when it is non-nil.
func NewWriter(dir string, echo io.Writer) (*Writer, error) {
	if err := os.MkdirAll(filepath.Join(dir, VisualDir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	name := fmt.Sprintf("%s.%d.%s", eventPrefix, now().Unix(), host)

	//nolint:gosec // G304: path is built from the operator's log directory
	events, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create event file: %w", err)
	}
	//nolint:gosec // G304: path is built from the operator's log directory
	text, err := os.OpenFile(filepath.Join(dir, TextLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		_ = events.Close()
		return nil, fmt.Errorf("failed to open text log: %w", err)
	}

	w := &Writer{
		dir:    dir,
		events: events,
		buf:    bufio.NewWriter(events),
		text:   text,
		echo:   echo,
		now:    now,
	}
	w.writeEvent(&Event{FileVersion: fileVersion})
	if err := w.flush(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the log directory.
func (w *Writer) Dir() string {
	return w.dir
}

// EventPath returns the path of the event file.
func (w *Writer) EventPath() string {
	return w.events.Name()
}

func (w *Writer) wallTime() float64 {
	return float64(w.now().UnixNano()) / 1e9
}

func (w *Writer) writeEvent(e *Event) {
	if w.err != nil {
		return
	}
	e.WallTime = w.wallTime()
	if err := writeRecord(w.buf, e.marshal()); err != nil {
		w.err = fmt.Errorf("failed to write event: %w", err)
	}
}

func (w *Writer) flush() error {
	if w.err == nil {
		if err := w.buf.Flush(); err != nil {
			w.err = fmt.Errorf("failed to flush events: %w", err)
		}
	}
	return w.err
}

// Scalars writes one summary event holding every name/value pair.
func (w *Writer) Scalars(names []string, values []float64, step int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := &Event{Step: int64(step)}
	for i, name := range names {
		if i >= len(values) {
			break
		}
		e.Values = append(e.Values, Value{Tag: name, Simple: float32(values[i])})
	}
	w.writeEvent(e)
	_ = w.flush()
}

// Text appends line to the text log.
func (w *Writer) Text(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.echo != nil {
		_, _ = fmt.Fprintln(w.echo, line)
	}
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintln(w.text, line); err != nil {
		w.err = fmt.Errorf("failed to write text log: %w", err)
	}
}

// Images writes an image summary event and saves each image as
// vis/<name>_<step>.png.
func (w *Writer) Images(names []string, images []image.Image, step int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := &Event{Step: int64(step)}
	for i, name := range names {
		if i >= len(images) || w.err != nil {
			break
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, images[i]); err != nil {
			w.err = fmt.Errorf("failed to encode image %s: %w", name, err)
			break
		}

		path := filepath.Join(w.dir, VisualDir, fmt.Sprintf("%s_%06d.png", name, step))
		if err := os.WriteFile(path, buf.Bytes(), 0o640); err != nil {
			w.err = fmt.Errorf("failed to save image: %w", err)
			break
		}

		b := images[i].Bounds()
		e.Values = append(e.Values, Value{Tag: name, Image: &Image{
			Height:     int32(b.Dy()), //nolint:gosec // G115: image sizes fit int32
			Width:      int32(b.Dx()), //nolint:gosec // G115: image sizes fit int32
			Colorspace: rgbaColorspace,
			Encoded:    buf.Bytes(),
		}})
	}
	w.writeEvent(e)
	_ = w.flush()
}

// Err returns the first write failure, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close flushes and closes the files. It returns the first write failure.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	flushErr := w.flush()
	return errors.Join(flushErr, w.events.Close(), w.text.Close())
}

// ReadEvents decodes every event of an event file.
func ReadEvents(path string) ([]*Event, error) {
	//nolint:gosec // G304: reading a caller-supplied event file
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var events []*Event
	for {
		payload, err := readRecord(r)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		e, err := unmarshalEvent(payload)
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}
