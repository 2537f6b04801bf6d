// Package buffer provides pooled byte slices for the streaming copy
// paths (chunk assembly, range downloads, cloud transfers) so sustained
// transfers do not churn the allocator.
package buffer

import (
	"io"
	"sync"
)

// Size is the length of every pooled buffer. 32KiB matches the copy
// size used by io.Copy for plain readers.
const Size = 32 * 1024

var pool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, Size)
		return &b
	},
}

// Get returns a buffer from the pool. Callers must Put it back.
func Get() *[]byte {
	return pool.Get().(*[]byte)
}

// Put returns a buffer obtained from Get.
func Put(b *[]byte) {
	if b == nil || len(*b) != Size {
		return
	}
	pool.Put(b)
}

// Copy is io.Copy with a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := Get()
	defer Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}
