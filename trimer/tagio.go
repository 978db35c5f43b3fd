package trimer

// Decoded tags are persisted as recordio streams so that whitelist
// construction and the correction pass can restart from them without
// re-decoding the raw reads, and so that uncorrected tag frequencies stay
// available for offline diagnostics.

import (
	"bytes"
	"context"
	"encoding/gob"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
)

const (
	// <tagVersionHeader, tagVersion> is stored in the recordio header.
	tagVersionHeader = "sctrimer-version"
	tagVersion       = "TAGS_V1"
)

// tagTrailer is stored in the trailer section of a tag stream.
type tagTrailer struct {
	// Opts is the decode configuration that produced the stream.
	Opts Opts
	// Stats are the final decode tallies for the chunk.
	Stats Stats
}

func encodeGOB(gw *gob.Encoder, v interface{}) {
	if err := gw.Encode(v); err != nil {
		panic(err)
	}
}

func decodeGOB(gr *gob.Decoder, v interface{}) {
	if err := gr.Decode(v); err != nil {
		panic(err)
	}
}

// TagWriter writes one chunk's decoded tags to a recordio file, zstd
// compressed, with the decode Opts and Stats in the trailer.
type TagWriter struct {
	out  file.File
	w    recordio.Writer
	opts Opts
}

// NewTagWriter creates a tag stream at path.
func NewTagWriter(ctx context.Context, path string, opts Opts) (*TagWriter, error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create tag stream:", path)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(tagVersionHeader, tagVersion)
	w.AddHeader(recordio.KeyTrailer, true)
	return &TagWriter{out: out, w: w, opts: opts}, nil
}

// Write appends one tag to the stream.
func (w *TagWriter) Write(tag Tag) {
	b := bytes.NewBuffer(nil)
	encodeGOB(gob.NewEncoder(b), tag)
	w.w.Append(b.Bytes())
}

// Close writes the trailer and closes the stream. It must be called exactly
// once, after the last Write.
func (w *TagWriter) Close(ctx context.Context, stats Stats) error {
	b := bytes.NewBuffer(nil)
	encodeGOB(gob.NewEncoder(b), tagTrailer{Opts: w.opts, Stats: stats})
	w.w.SetTrailer(b.Bytes())
	if err := w.w.Finish(); err != nil {
		return errors.E(err, "finish tag stream")
	}
	return w.out.Close(ctx)
}

// TagScanner reads a tag stream written by TagWriter.
type TagScanner struct {
	in      file.File
	r       recordio.Scanner
	trailer tagTrailer
	tag     Tag
}

// NewTagScanner opens the tag stream at path, verifying its version header.
func NewTagScanner(ctx context.Context, path string) (*TagScanner, error) {
	recordiozstd.Init()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open tag stream:", path)
	}
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	version := ""
	for _, kv := range r.Header() {
		if kv.Key == tagVersionHeader {
			version, _ = kv.Value.(string)
			break
		}
	}
	if version != tagVersion {
		_ = in.Close(ctx)
		return nil, errors.E("tag stream", path, "version", version, "want", tagVersion)
	}
	trailerBytes := r.Trailer()
	if len(trailerBytes) == 0 {
		_ = in.Close(ctx)
		return nil, errors.E("tag stream", path, "missing trailer")
	}
	s := &TagScanner{in: in, r: r}
	decodeGOB(gob.NewDecoder(bytes.NewReader(trailerBytes)), &s.trailer)
	return s, nil
}

// Opts returns the decode configuration stored in the stream.
func (s *TagScanner) Opts() Opts { return s.trailer.Opts }

// Stats returns the decode tallies stored in the stream.
func (s *TagScanner) Stats() Stats { return s.trailer.Stats }

// Scan reads the next tag. It returns false at the end of the stream or on
// error; check Err after the loop.
func (s *TagScanner) Scan() bool {
	if !s.r.Scan() {
		return false
	}
	s.tag = Tag{}
	decodeGOB(gob.NewDecoder(bytes.NewReader(s.r.Get().([]byte))), &s.tag)
	return true
}

// Tag yields the tag read by the last successful Scan.
func (s *TagScanner) Tag() Tag { return s.tag }

// Err returns the first error encountered while scanning, if any.
func (s *TagScanner) Err() error { return s.r.Err() }

// Close closes the stream. It must be called exactly once.
func (s *TagScanner) Close(ctx context.Context) error {
	if err := s.r.Err(); err != nil {
		_ = s.in.Close(ctx)
		return err
	}
	return s.in.Close(ctx)
}
