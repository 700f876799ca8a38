// =============================================================================
// IATI Activity Export - CSV Writer
// =============================================================================
//
// CSVStream renders rows as RFC 4180 CSV, one chunk at a time, so that large
// exports never hold more than a single row in memory.
//
// USAGE:
//   stream := serializer.CSV(activities)
//   defer stream.Close()
//
//   for stream.Next() {
//       w.Write(stream.Chunk())
//   }
//
//   if err := stream.Err(); err != nil {
//       return err
//   }
//
// CHUNKS:
//   - The first chunk is always the header line (with a UTF-8 BOM when
//     requested), even when no rows follow.
//   - Every further chunk is exactly one data row.
//
// The input is not touched until the second call to Next. Close may be called
// at any point and stops the input sequence.
//
// =============================================================================

package serializer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// utf8BOM helps spreadsheet applications detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures a CSVStream.
type CSVOptions struct {
	// Columns to render. Nil selects DefaultColumns.
	Columns []Column

	// BOM prefixes the header with a UTF-8 byte order mark.
	BOM bool
}

// CSVStream is a pull-based CSV producer.
type CSVStream struct {
	rows    iter.Seq[Row]
	columns []Column
	bom     bool

	next func() (Row, bool)
	stop func()

	buf    bytes.Buffer
	writer *csv.Writer

	chunk       []byte
	headerDone  bool
	closed      bool
	err         error
	rowsWritten int
}

// NewCSVStream creates a stream over rows. No rows are read yet.
func NewCSVStream(rows iter.Seq[Row], opts CSVOptions) *CSVStream {
	columns := opts.Columns
	if columns == nil {
		columns = DefaultColumns()
	}

	s := &CSVStream{
		rows:    rows,
		columns: columns,
		bom:     opts.BOM,
	}
	s.writer = csv.NewWriter(&s.buf)
	return s
}

// CSV streams one row per activity with the default columns.
func CSV(activities iter.Seq[*types.Activity]) *CSVStream {
	return NewCSVStream(FlatRows(activities), CSVOptions{})
}

// CSVByCountry streams one row per (activity, country) pair.
func CSVByCountry(pairs iter.Seq[CountryPair]) *CSVStream {
	return NewCSVStream(CountryRows(pairs), CSVOptions{})
}

// CSVBySector streams one row per (activity, sector) pair.
func CSVBySector(pairs iter.Seq[SectorPair]) *CSVStream {
	return NewCSVStream(SectorRows(pairs), CSVOptions{})
}

// =============================================================================
// ITERATION
// =============================================================================

// Next produces the next chunk. It returns false when the input is exhausted,
// the stream is closed, or an error occurred.
func (s *CSVStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}

	if !s.headerDone {
		s.headerDone = true
		s.buf.Reset()
		if s.bom {
			s.buf.Write(utf8BOM)
		}
		return s.emit(ColumnNames(s.columns))
	}

	if s.next == nil {
		s.next, s.stop = iter.Pull(s.rows)
	}

	row, ok := s.next()
	if !ok {
		s.Close()
		return false
	}

	s.buf.Reset()
	if !s.emit(Extract(row, s.columns)) {
		return false
	}
	s.rowsWritten++
	return true
}

// emit renders one record into the chunk buffer.
func (s *CSVStream) emit(record []string) bool {
	if err := s.writer.Write(record); err != nil {
		s.err = fmt.Errorf("failed to write CSV record: %w", err)
		return false
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.err = fmt.Errorf("failed to flush CSV record: %w", err)
		return false
	}

	s.chunk = append(s.chunk[:0], s.buf.Bytes()...)
	return true
}

// Chunk returns the bytes produced by the last successful Next.
// The slice is reused by the following call to Next.
func (s *CSVStream) Chunk() []byte {
	return s.chunk
}

// Err returns the first error encountered.
func (s *CSVStream) Err() error {
	return s.err
}

// RowsWritten returns the number of data rows produced so far.
func (s *CSVStream) RowsWritten() int {
	return s.rowsWritten
}

// Close stops the input sequence. It is safe to call more than once.
func (s *CSVStream) Close() error {
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
func (s *CSVStream) WriteTo(w io.Writer) (int64, error) {
	defer s.Close()

	var total int64
	for s.Next() {
		n, err := w.Write(s.Chunk())
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write CSV output: %w", err)
		}
	}
	return total, s.Err()
}
