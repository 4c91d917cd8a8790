package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// The posting log persists what the memory-mapped term store does
// not: which documents each term occurs in. It is an append-only
// sequence of little-endian framed records, replayed on open to
// rebuild the posting bitmaps and the document registry.
const (
	recPosting = 0x01 // termID uint32, docID uint64
	recDoc     = 0x02 // docID uint64, tokenCount uint32

	postingRecSize = 1 + 4 + 8
	docRecSize     = 1 + 8 + 4
)

type postingLog struct {
	f *os.File
	w *bufio.Writer
}

func openPostingLog(path string) (*postingLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening posting log: %w", err)
	}
	return &postingLog{f: f, w: bufio.NewWriter(f)}, nil
}

// replay reads the log from the start, invoking the callbacks in
// record order, and leaves the file positioned for appending.
func (pl *postingLog) replay(
	onPosting func(termID uint32, docID uint64) error,
	onDoc func(docID uint64, tokens uint32) error,
) error {
	if _, err := pl.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("replaying posting log: %w", err)
	}
	r := bufio.NewReader(pl.f)
	var rec [docRecSize - 1]byte

	for {
		kind, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("replaying posting log: %w", err)
		}
		switch kind {
		case recPosting:
			if _, err := io.ReadFull(r, rec[:postingRecSize-1]); err != nil {
				return fmt.Errorf("%w: truncated posting record", ErrCorrupt)
			}
			termID := binary.LittleEndian.Uint32(rec[0:4])
			docID := binary.LittleEndian.Uint64(rec[4:12])
			if err := onPosting(termID, docID); err != nil {
				return err
			}
		case recDoc:
			if _, err := io.ReadFull(r, rec[:docRecSize-1]); err != nil {
				return fmt.Errorf("%w: truncated document record", ErrCorrupt)
			}
			docID := binary.LittleEndian.Uint64(rec[0:8])
			tokens := binary.LittleEndian.Uint32(rec[8:12])
			if err := onDoc(docID, tokens); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown record kind 0x%02x", ErrCorrupt, kind)
		}
	}
	if _, err := pl.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("replaying posting log: %w", err)
	}
	return nil
}

func (pl *postingLog) appendPosting(termID uint32, docID uint64) error {
	var rec [postingRecSize]byte
	rec[0] = recPosting
	binary.LittleEndian.PutUint32(rec[1:5], termID)
	binary.LittleEndian.PutUint64(rec[5:13], docID)
	_, err := pl.w.Write(rec[:])
	return err
}

func (pl *postingLog) appendDoc(docID uint64, tokens uint32) error {
	var rec [docRecSize]byte
	rec[0] = recDoc
	binary.LittleEndian.PutUint64(rec[1:9], docID)
	binary.LittleEndian.PutUint32(rec[9:13], tokens)
	_, err := pl.w.Write(rec[:])
	return err
}

func (pl *postingLog) flush() error {
	if err := pl.w.Flush(); err != nil {
		return err
	}
	return pl.f.Sync()
}

func (pl *postingLog) close() error {
	ferr := pl.w.Flush()
	if err := pl.f.Close(); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}
