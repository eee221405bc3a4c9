// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"io"

	"github.com/atotto/clipboard"
)

// ErrUnsupported reports that no clipboard utility is available on this system.
var ErrUnsupported = errors.New("clipboard is not supported on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

var _ Copier = (*Service)(nil)

// CapturingWriter mirrors everything written to it into destination and
// keeps a copy that Flush hands to the clipboard.
type CapturingWriter struct {
	destination io.Writer
	copier      Copier
	captured    bytes.Buffer
}

// NewCapturingWriter wraps destination. A nil destination only captures.
func NewCapturingWriter(destination io.Writer, copier Copier) *CapturingWriter {
	return &CapturingWriter{destination: destination, copier: copier}
}

// Write records data and forwards it to the destination.
func (writer *CapturingWriter) Write(data []byte) (int, error) {
	writer.captured.Write(data)
	if writer.destination == nil {
		return len(data), nil
	}
	return writer.destination.Write(data)
}

// Captured returns the text written so far.
func (writer *CapturingWriter) Captured() string {
	return writer.captured.String()
}

// Flush copies the captured text to the clipboard.
func (writer *CapturingWriter) Flush() error {
	if writer.copier == nil {
		return nil
	}
	return writer.copier.Copy(writer.captured.String())
}
