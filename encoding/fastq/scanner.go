package fastq

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

var (
	// ErrShort is returned when a FASTQ file ends mid-record.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when a FASTQ record is malformed.
	ErrInvalid = errors.New("invalid FASTQ file")
)

// maxLineBytes bounds a single FASTQ line. Long-read sequencers emit
// sequences far past bufio's default token size, so the scanner buffer must
// be allowed to grow.
const maxLineBytes = 64 << 20

// A Read is a FASTQ read, comprising an ID, sequence, line 3 ("unknown"), and
// a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// Name returns the read name: the ID without its "@" prefix and without the
// description following the first whitespace, if any.
func (r *Read) Name() string {
	name := strings.TrimPrefix(r.ID, "@")
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return name
}

// Annotate rewrites the read name to name_cell_umi, the form downstream
// grouping stages parse the cell barcode and UMI back out of. A description
// after the first whitespace is preserved.
func (r *Read) Annotate(cell, umi string) {
	name := r.ID
	var desc string
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name, desc = name[:i], name[i:]
	}
	r.ID = name + "_" + cell + "_" + umi + desc
}

// Trim cuts the read and quality lengths to at most n.
func (r *Read) Trim(n int) {
	if n < len(r.Seq) {
		r.Seq = r.Seq[:n]
	}
	if n < len(r.Qual) {
		r.Qual = r.Qual[:n]
	}
}

var errEOF = errors.New("eof")

// Scanner reads FASTQ records sequentially. The Scan method fills the next
// read, returning a boolean indicating whether the scan succeeded. Scanners
// are not threadsafe.
//
// Scanner validates only record framing: ID lines must begin with "@" and
// line 3 with "+". It does not check that seq and qual agree in length or
// that bases are in range.
type Scanner struct {
	b      *bufio.Scanner
	err    error
	fields Field
}

// Field enumerates FASTQ fields. It is used to specify the fields to
// materialize in NewScanner; skipping fields avoids string allocation for
// lines the caller will not look at.
type Field uint

const (
	// ID causes the Read.ID field to be filled
	ID Field = 1 << iota
	// Seq causes the Read.Seq field to be filled
	Seq
	// Unk causes the Read.Unk field to be filled
	Unk
	// Qual causes the Read.Qual field to be filled
	Qual
	// All equals ID|Seq|Unk|Qual.
	All = ID | Seq | Unk | Qual
)

// NewScanner constructs a new Scanner that reads raw FASTQ data from the
// provided reader. Fields is a bitset of the fields to read. A typical value
// would be All or ID|Seq|Qual.
func NewScanner(r io.Reader, fields Field) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 0, 1<<20), maxLineBytes)
	return &Scanner{b: b, fields: fields}
}

// Scan the next read into the provided read. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it never
// returns true again. Upon completion, the user should check the Err method
// to determine whether scanning stopped because of an error or because the
// end of the stream was reached.
func (s *Scanner) Scan(read *Read) bool {
	if s.err != nil {
		return false
	}
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = errEOF
		}
		return false
	}
	id := s.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		s.err = ErrInvalid
		return false
	}
	if s.fields&ID != 0 {
		read.ID = string(id)
	}
	if !s.scan() {
		return false
	}
	if s.fields&Seq != 0 {
		read.Seq = s.b.Text()
	}
	if !s.scan() {
		return false
	}
	unk := s.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		s.err = ErrInvalid
		return false
	}
	if s.fields&Unk != 0 {
		read.Unk = string(unk)
	}
	if !s.scan() {
		return false
	}
	if s.fields&Qual != 0 {
		read.Qual = s.b.Text()
	}
	return true
}

func (s *Scanner) scan() bool {
	ok := s.b.Scan()
	if !ok {
		if s.err = s.b.Err(); s.err == nil {
			s.err = ErrShort
		}
	}
	return ok
}

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}
