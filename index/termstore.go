package index

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// On-disk layout of the term store:
//
//	header (64 bytes)
//	value blob: NUL-delimited UTF-8 term values, insertion order
//	counter array at 64+blobCap: one uint64 occurrence counter per term
//
// The counter region offset is a function of blobCap, so term offsets
// are kept relative to the counter region and survive relocation when
// the blob capacity grows. All multi-byte fields are in native byte
// order; the file is not portable across byte orders.
const (
	storeMagic   = 0x7473786e // "nxst"
	storeVersion = 1

	hdrSize       = 64
	hdrOffMagic   = 0
	hdrOffVersion = 4
	hdrOffCount   = 8
	hdrOffBlobLen = 16
	hdrOffBlobCap = 24
	hdrOffCtrLen  = 32

	counterSize = 8

	initialBlobCap = 64 * 1024
	initialCtrCap  = 4096
)

// termStore is the persistent, memory-mapped term store. New terms
// are published by a release-store of the header term count after
// their value bytes and zero counter are in place; readers pair with
// an acquire-load of the count.
type termStore struct {
	f    *os.File
	data mmap.MMap
}

// openTermStore maps the term store at path, creating and
// initializing the file when it does not exist.
func openTermStore(path string) (*termStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening term store: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening term store: %w", err)
	}

	ts := &termStore{f: f}
	if info.Size() == 0 {
		if err := ts.initialize(); err != nil {
			f.Close()
			return nil, err
		}
		return ts, nil
	}
	if err := ts.mapAndValidate(info.Size()); err != nil {
		if ts.data != nil {
			ts.data.Unmap()
		}
		f.Close()
		return nil, err
	}
	return ts, nil
}

func (ts *termStore) initialize() error {
	size := int64(hdrSize + initialBlobCap + initialCtrCap*counterSize)
	if err := ts.f.Truncate(size); err != nil {
		return fmt.Errorf("initializing term store: %w", err)
	}
	data, err := mmap.Map(ts.f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mapping term store: %w", err)
	}
	ts.data = data
	*ts.u32(hdrOffMagic) = storeMagic
	*ts.u32(hdrOffVersion) = storeVersion
	*ts.u64(hdrOffBlobCap) = initialBlobCap
	return nil
}

func (ts *termStore) mapAndValidate(size int64) error {
	if size < hdrSize {
		return fmt.Errorf("%w: short header", ErrCorrupt)
	}
	data, err := mmap.Map(ts.f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mapping term store: %w", err)
	}
	ts.data = data

	if *ts.u32(hdrOffMagic) != storeMagic {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if *ts.u32(hdrOffVersion) != storeVersion {
		return fmt.Errorf("%w: unsupported version %d",
			ErrCorrupt, *ts.u32(hdrOffVersion))
	}
	count := uint64(ts.count())
	blobLen := *ts.u64(hdrOffBlobLen)
	blobCap := *ts.u64(hdrOffBlobCap)
	ctrLen := *ts.u64(hdrOffCtrLen)

	if blobCap%counterSize != 0 || blobLen > blobCap {
		return fmt.Errorf("%w: bad blob bounds", ErrCorrupt)
	}
	if ctrLen != count*counterSize {
		return fmt.Errorf("%w: counter length mismatch", ErrCorrupt)
	}
	if hdrSize+blobCap+ctrLen > uint64(size) {
		return fmt.Errorf("%w: file truncated", ErrCorrupt)
	}
	return nil
}

// u32 returns a pointer to a 32-bit header field. Header fields are
// naturally aligned within the page-aligned mapping, which keeps the
// atomic accesses below valid.
func (ts *termStore) u32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&ts.data[off]))
}

func (ts *termStore) u64(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&ts.data[off]))
}

// count returns the published number of terms.
func (ts *termStore) count() uint32 {
	return atomic.LoadUint32(ts.u32(hdrOffCount))
}

func (ts *termStore) blobStart() uint64 {
	return hdrSize
}

func (ts *termStore) countersStart() uint64 {
	return hdrSize + *ts.u64(hdrOffBlobCap)
}

func (ts *termStore) countersCap() uint64 {
	return (uint64(len(ts.data)) - ts.countersStart()) / counterSize
}

// each iterates the value blob, invoking fn with each term's
// zero-based slot and value, in insertion order.
func (ts *termStore) each(fn func(slot uint32, value []byte) error) error {
	count := ts.count()
	blobLen := *ts.u64(hdrOffBlobLen)
	blob := ts.data[ts.blobStart() : ts.blobStart()+blobLen]

	off := uint64(0)
	for slot := uint32(0); slot < count; slot++ {
		start := off
		for off < blobLen && blob[off] != 0 {
			off++
		}
		if off == blobLen || off == start {
			return fmt.Errorf("%w: truncated value blob", ErrCorrupt)
		}
		if err := fn(slot, blob[start:off]); err != nil {
			return err
		}
		off++ // NUL delimiter
	}
	return nil
}

// append adds a term value to the store: the value bytes and a zero
// counter are written first, then the new count is published with a
// release store. It returns the assigned term ID (count after the
// append) and the counter offset, relative to the counter region.
func (ts *termStore) append(value []byte) (uint32, uint64, error) {
	count := ts.count()
	blobLen := *ts.u64(hdrOffBlobLen)
	need := blobLen + uint64(len(value)) + 1

	if need > *ts.u64(hdrOffBlobCap) || uint64(count) >= ts.countersCap() {
		if err := ts.grow(need, uint64(count)+1); err != nil {
			return 0, 0, err
		}
	}

	blob := ts.data[ts.blobStart()+blobLen:]
	copy(blob, value)
	blob[len(value)] = 0

	offset := uint64(count) * counterSize
	atomic.StoreUint64(ts.u64(int(ts.countersStart()+offset)), 0)

	*ts.u64(hdrOffBlobLen) = need
	*ts.u64(hdrOffCtrLen) = uint64(count+1) * counterSize
	atomic.StoreUint32(ts.u32(hdrOffCount), count+1)

	return count + 1, offset, nil
}

// grow expands the file so that the blob can hold needBlob bytes and
// the counter region needCtrs slots, relocating the counter region
// when the blob capacity changes. The caller must hold the index
// writer lock: the mapping is replaced.
func (ts *termStore) grow(needBlob, needCtrs uint64) error {
	blobCap := *ts.u64(hdrOffBlobCap)
	for blobCap < needBlob {
		blobCap *= 2
	}
	ctrCap := ts.countersCap()
	for ctrCap < needCtrs {
		ctrCap *= 2
	}

	ctrLen := *ts.u64(hdrOffCtrLen)
	counters := make([]byte, ctrLen)
	copy(counters, ts.data[ts.countersStart():ts.countersStart()+ctrLen])

	if err := ts.data.Unmap(); err != nil {
		return fmt.Errorf("growing term store: %w", err)
	}
	ts.data = nil

	size := int64(hdrSize + blobCap + ctrCap*counterSize)
	if err := ts.f.Truncate(size); err != nil {
		return fmt.Errorf("growing term store: %w", err)
	}
	data, err := mmap.Map(ts.f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("remapping term store: %w", err)
	}
	ts.data = data

	*ts.u64(hdrOffBlobCap) = blobCap
	copy(ts.data[ts.countersStart():], counters)
	return nil
}

// incr atomically adds n to the counter at the given region-relative
// offset. Relaxed ordering: the counter is a running total, not a
// synchronization point.
func (ts *termStore) incr(offset uint64, n uint64) {
	atomic.AddUint64(ts.u64(int(ts.countersStart()+offset)), n)
}

// counter reads the occurrence counter at the given offset.
func (ts *termStore) counter(offset uint64) uint64 {
	return atomic.LoadUint64(ts.u64(int(ts.countersStart() + offset)))
}

// close flushes and unmaps the store.
func (ts *termStore) close() error {
	var firstErr error
	if ts.data != nil {
		if err := ts.data.Flush(); err != nil {
			firstErr = err
		}
		if err := ts.data.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
		ts.data = nil
	}
	if err := ts.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
