// Package csvio persists the embedder's feature rows to disk: one buffered
// CSV file per shard, written with the exact header schema and column
// order the external interface specifies.
package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/scigolib/heapkey/internal/embed"
)

// Writer wraps encoding/csv with a buffered *os.File; Close flushes both
// writers before closing the file. The file exists from Create onward, so
// the idempotence gate, which checks existence only, cannot tell a
// partially written file from a complete one.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	csv *csv.Writer
}

// Create opens path for writing and emits the header row for the given
// embedding depth.
func Create(path string, depth int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: creating %s: %w", path, err)
	}

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)

	if err := w.Write(Header(depth)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csvio: writing header to %s: %w", path, err)
	}

	return &Writer{f: f, buf: buf, csv: w}, nil
}

// Header builds the exact column order for the given embedding depth:
// file_path, f_chn_addr, f_chunk_byte_size, f_chunk_ptrs, then the
// ancestor pairs for i=1..D, then the children pairs for i=1..D, then label.
func Header(depth int) []string {
	header := []string{"file_path", "f_chn_addr", "f_chunk_byte_size", "f_chunk_ptrs"}
	for i := 1; i <= depth; i++ {
		header = append(header, fmt.Sprintf("f_chns_ancestor_%d", i), fmt.Sprintf("f_ptrs_ancestor_%d", i))
	}
	for i := 1; i <= depth; i++ {
		header = append(header, fmt.Sprintf("f_chns_children_%d", i), fmt.Sprintf("f_ptrs_children_%d", i))
	}
	return append(header, "label")
}

// WriteRow appends one feature row.
func (w *Writer) WriteRow(r embed.Row) error {
	record := make([]string, 0, 4+4*len(r.AncestorChns)+1)
	record = append(record,
		r.FilePath,
		strconv.FormatUint(r.ChunkAddr, 10),
		strconv.FormatUint(r.ChunkByteSize, 10),
		strconv.Itoa(r.ChunkPtrs),
	)
	for i := range r.AncestorChns {
		record = append(record, strconv.Itoa(r.AncestorChns[i]), strconv.Itoa(r.AncestorPtrs[i]))
	}
	for i := range r.ChildrenChns {
		record = append(record, strconv.Itoa(r.ChildrenChns[i]), strconv.Itoa(r.ChildrenPtrs[i]))
	}
	record = append(record, strconv.Itoa(r.Label))

	return w.csv.Write(record)
}

// WriteRows appends every row in order.
func (w *Writer) WriteRows(rows []embed.Row) error {
	for _, r := range rows {
		if err := w.WriteRow(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the CSV and buffered writers and closes the underlying
// file. Callers must check the returned error: a failed flush means the
// output is incomplete and must not be treated as a valid idempotence
// checkpoint.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("csvio: flushing csv writer: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("csvio: flushing buffer: %w", err)
	}
	return w.f.Close()
}
