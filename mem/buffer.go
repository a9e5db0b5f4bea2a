// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mem

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrBufferFull is returned by ReserveSpace when the data does not
	// fit and the buffer cannot grow.
	ErrBufferFull = errors.New("buffer is full")

	// ErrInvalidArgument is returned for sizes and capacities that are
	// not multiples of the alignment, and for attempts to grow an
	// externally managed buffer.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLogic is returned for misuse of buffers and builders, such as
	// committing an unaligned buffer or closing builders out of order.
	ErrLogic = errors.New("logic error")
)

// Buffer is an append-only arena holding a sequence of Items. A buffer
// exclusively owns its bytes; items are non-owning views into it, and
// moving or clearing the buffer invalidates all outstanding views.
//
// Buffers are not safe for concurrent use. The pipeline parallelizes by
// handing whole buffers between stages, never by sharing one.
//
// The zero Buffer value is the invalid sentinel used to signal
// end-of-stream; Valid reports false for it and most other methods
// must not be called on it.
type Buffer struct {
	data      []byte
	written   int
	committed int
	external  bool
	autoGrow  bool
}

// NewBuffer creates a buffer with internally managed memory of the
// given initial capacity that grows automatically when full. The
// capacity must be a multiple of Align.
func NewBuffer(capacity int) (*Buffer, error) {
	b, err := NewFixedBuffer(capacity)
	if err != nil {
		return nil, err
	}

	b.autoGrow = true

	return b, nil
}

// NewFixedBuffer creates a buffer with internally managed memory of the
// given capacity that returns ErrBufferFull instead of growing.
func NewFixedBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity%Align != 0 {
		return nil, fmt.Errorf("%w: buffer capacity must be a positive multiple of %d", ErrInvalidArgument, Align)
	}

	return &Buffer{data: make([]byte, capacity)}, nil
}

// NewExternalBuffer wraps caller-owned memory that already contains
// committed items. External buffers never grow; freeing the memory is
// the caller's responsibility.
func NewExternalBuffer(data []byte, committed int) (*Buffer, error) {
	if len(data)%Align != 0 {
		return nil, fmt.Errorf("%w: buffer size must be a multiple of %d", ErrInvalidArgument, Align)
	}

	if committed%Align != 0 || committed > len(data) {
		return nil, fmt.Errorf("%w: committed must be an aligned prefix of the data", ErrInvalidArgument)
	}

	return &Buffer{data: data, written: committed, committed: committed, external: true}, nil
}

// Valid reports whether the buffer has memory associated with it. An
// invalid buffer signals end-of-stream on the pipeline queues.
func (b *Buffer) Valid() bool {
	return b != nil && b.data != nil
}

// Capacity returns how many bytes the buffer can hold. Zero for the
// invalid sentinel.
func (b *Buffer) Capacity() int {
	if b == nil {
		return 0
	}

	return len(b.data)
}

// Committed returns the number of committed bytes.
func (b *Buffer) Committed() int {
	if b == nil {
		return 0
	}

	return b.committed
}

// Written returns the number of written bytes, committed or not.
func (b *Buffer) Written() int {
	if b == nil {
		return 0
	}

	return b.written
}

// Data returns the committed prefix of the buffer's memory.
func (b *Buffer) Data() []byte {
	return b.data[:b.committed]
}

// IsAligned reports whether both watermarks sit on alignment boundaries.
func (b *Buffer) IsAligned() bool {
	return b.written%Align == 0 && b.committed%Align == 0
}

// ReserveSpace reserves size bytes and returns the writable span,
// advancing the written watermark. The span is only valid until the
// next reservation. If the data does not fit, an auto-growing buffer
// doubles its capacity until it does; any other buffer returns
// ErrBufferFull.
func (b *Buffer) ReserveSpace(size int) ([]byte, error) {
	if b.written+size > len(b.data) {
		if b.external || !b.autoGrow {
			return nil, ErrBufferFull
		}

		capacity := len(b.data) * 2
		for b.written+size > capacity {
			capacity *= 2
		}

		if err := b.Grow(capacity); err != nil {
			return nil, err
		}
	}

	span := b.data[b.written : b.written+size]
	b.written += size

	return span, nil
}

// Grow raises the capacity of an internally managed buffer to at least
// the given size. Nothing happens if the buffer is already that large.
func (b *Buffer) Grow(capacity int) error {
	if b.external {
		return fmt.Errorf("%w: cannot grow an externally managed buffer", ErrInvalidArgument)
	}

	if capacity%Align != 0 {
		return fmt.Errorf("%w: buffer capacity must be a multiple of %d", ErrInvalidArgument, Align)
	}

	if capacity <= len(b.data) {
		return nil
	}

	data := make([]byte, capacity)
	copy(data, b.data[:b.written])
	b.data = data

	return nil
}

// Commit promotes all written bytes to committed and returns the
// previous committed watermark, which is the offset of the freshly
// committed item.
func (b *Buffer) Commit() (int, error) {
	if !b.IsAligned() {
		return 0, fmt.Errorf("%w: commit on unaligned buffer", ErrLogic)
	}

	offset := b.committed
	b.committed = b.written

	return offset, nil
}

// Rollback discards all uncommitted bytes.
func (b *Buffer) Rollback() {
	b.written = b.committed
}

// Clear resets both watermarks and returns the number of bytes that
// were committed.
func (b *Buffer) Clear() int {
	committed := b.committed
	b.written = 0
	b.committed = 0

	return committed
}

// At returns the item starting at the given committed offset.
func (b *Buffer) At(offset int) Item {
	return ItemAt(b.data[offset:b.committed])
}

// AddItem copies an already-formed item into the buffer. The copy is
// written but not committed.
func (b *Buffer) AddItem(item Item) error {
	span, err := b.ReserveSpace(item.Size())
	if err != nil {
		return err
	}

	copy(span, item.Bytes())

	return nil
}

// AddBuffer copies the committed prefix of another buffer into this
// one. The copy is written but not committed.
func (b *Buffer) AddBuffer(other *Buffer) error {
	span, err := b.ReserveSpace(other.Committed())
	if err != nil {
		return err
	}

	copy(span, other.Data())

	return nil
}

// Items iterates over all committed items in buffer order.
func (b *Buffer) Items() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		pos := 0
		for pos+HeaderSize <= b.committed {
			item := b.At(pos)
			if !yield(item) {
				return
			}

			pos += item.Size()
		}
	}
}

// Objects iterates over all committed items whose type tag denotes an
// OSM object, skipping any other item kinds.
func (b *Buffer) Objects() iter.Seq[Object] {
	return func(yield func(Object) bool) {
		for item := range b.Items() {
			if !item.Type().IsObject() {
				continue
			}

			if !yield(item.Object()) {
				return
			}
		}
	}
}

// PurgeRemoved compacts the buffer in place by overwriting items whose
// removed flag is set. For every surviving item that shifts, cb is
// called with the old and new offsets before the move so external
// indexes can be patched. All iterators and offsets into the buffer are
// invalidated. cb may be nil.
func (b *Buffer) PurgeRemoved(cb func(oldOffset, newOffset int)) {
	read := 0
	write := 0

	for read+HeaderSize <= b.committed {
		item := b.At(read)
		size := item.Size()

		removed := item.Type().IsObject() && item.Object().Removed()
		if !removed {
			if read != write {
				if cb != nil {
					cb(read, write)
				}

				copy(b.data[write:write+size], b.data[read:read+size])
			}

			write += size
		}

		read += size
	}

	b.written = write
	b.committed = write
}
