// =============================================================================
// IATI Activity Export - XML Writer
// =============================================================================
//
// This module wraps the stored markup of each activity in a single document.
// The fragments are copied byte-for-byte: they are never parsed, re-encoded
// or checked against namespace declarations, so a fragment stored as
// <t:test /> comes out as <t:test /> even though "t" is unbound.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>          <!-- optional -->
//   <iati-activities version="2.03">                <!-- root, configurable -->
//   <iati-activity>...</iati-activity>              <!-- activity 1, verbatim -->
//   <iati-activity>...</iati-activity>              <!-- activity 2, verbatim -->
//   </iati-activities>
//
// A malformed fragment makes the document malformed; the error shows up in
// whatever parses the output, not here.
//
// Like the CSV writer this is a pull-based stream: one chunk for the
// document head, one per activity, one for the closing tag.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options contains options for document generation.
type Options struct {
	// RootElement is the name of the wrapping element.
	// Default: "iati-activities"
	RootElement string

	// IncludeXMLDeclaration writes <?xml ...?> before the root.
	IncludeXMLDeclaration bool

	// Version is written as the root "version" attribute when set.
	Version string

	// GeneratedAt is written as the root "generated-datetime" attribute
	// when non-zero.
	GeneratedAt time.Time

	// Newlines puts each fragment on its own line.
	Newlines bool
}

// DefaultOptions returns the default generation options.
func DefaultOptions() Options {
	return Options{
		RootElement:           "iati-activities",
		IncludeXMLDeclaration: true,
		Newlines:              true,
	}
}

// =============================================================================
// STREAM
// =============================================================================

type streamState int

const (
	stateHead streamState = iota
	stateBody
	stateTail
	stateDone
)

// Stream is a pull-based XML document producer.
type Stream struct {
	activities iter.Seq[*types.Activity]
	options    Options

	next func() (*types.Activity, bool)
	stop func()

	state  streamState
	chunk  []byte
	count  int
	closed bool
}

// NewStream creates a stream over activities. No activity is read yet.
func NewStream(activities iter.Seq[*types.Activity], options Options) *Stream {
	if options.RootElement == "" {
		options.RootElement = "iati-activities"
	}
	return &Stream{
		activities: activities,
		options:    options,
	}
}

// XML streams activities with the default options.
func XML(activities iter.Seq[*types.Activity]) *Stream {
	return NewStream(activities, DefaultOptions())
}

// Next produces the next chunk of the document.
func (s *Stream) Next() bool {
	if s.closed {
		return false
	}

	switch s.state {
	case stateHead:
		s.chunk = s.head()
		s.state = stateBody
		return true

	case stateBody:
		if s.next == nil {
			s.next, s.stop = iter.Pull(s.activities)
		}
		activity, ok := s.next()
		if ok {
			s.chunk = append(s.chunk[:0], activity.RawXML...)
			if s.options.Newlines {
				s.chunk = append(s.chunk, '\n')
			}
			s.count++
			return true
		}
		s.state = stateTail
		fallthrough

	case stateTail:
		s.chunk = s.tail()
		s.state = stateDone
		return true

	default:
		s.Close()
		return false
	}
}

// Chunk returns the bytes produced by the last successful Next.
// The slice is reused by the following call to Next.
func (s *Stream) Chunk() []byte {
	return s.chunk
}

// Count returns the number of activities written so far.
func (s *Stream) Count() int {
	return s.count
}

// Err always returns nil; fragments are not validated. It exists so the
// stream can be driven the same way as the CSV stream.
func (s *Stream) Err() error {
	return nil
}

// Close stops the input sequence. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stop != nil {
		s.stop()
	}
	return nil
}

// WriteTo drains the stream into w and closes it.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	defer s.Close()

	var total int64
	for s.Next() {
		n, err := w.Write(s.Chunk())
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write XML output: %w", err)
		}
	}
	return total, nil
}

// Generate builds the whole document in memory.
func Generate(activities []*types.Activity, options Options) []byte {
	var buffer bytes.Buffer
	stream := NewStream(func(yield func(*types.Activity) bool) {
		for _, a := range activities {
			if !yield(a) {
				return
			}
		}
	}, options)
	// bytes.Buffer writes do not fail.
	_, _ = stream.WriteTo(&buffer)
	return buffer.Bytes()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// head returns the declaration and the root start tag.
func (s *Stream) head() []byte {
	var buffer bytes.Buffer

	if s.options.IncludeXMLDeclaration {
		buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}

	buffer.WriteString("<")
	buffer.WriteString(s.options.RootElement)
	if s.options.Version != "" {
		buffer.WriteString(fmt.Sprintf(" version=\"%s\"", escapeXML(s.options.Version)))
	}
	if !s.options.GeneratedAt.IsZero() {
		buffer.WriteString(fmt.Sprintf(" generated-datetime=\"%s\"",
			s.options.GeneratedAt.UTC().Format(time.RFC3339)))
	}
	buffer.WriteString(">")
	if s.options.Newlines {
		buffer.WriteString("\n")
	}

	return buffer.Bytes()
}

// tail returns the root end tag.
func (s *Stream) tail() []byte {
	tail := "</" + s.options.RootElement + ">"
	if s.options.Newlines {
		tail += "\n"
	}
	return []byte(tail)
}

// escapeXML escapes special characters for attribute values.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
