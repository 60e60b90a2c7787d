package regs

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// Window is a register block mapped into our address space from a memory
// device (/dev/mem, a UIO node or a debugger's memory file).
type Window struct {
	mm   mmap.MMap
	offs uintptr
	size uint32
}

// MapWindow opens device and uses mmap to map size bytes at physAddr.
// Since the mapping has to start at a page boundary, the physical address is
// rounded down to the nearest page boundary and the offset remembered.
func MapWindow(device string, physAddr uintptr, size uint32) (*Window, error) {
	f, err := os.OpenFile(device, os.O_RDWR|unix.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", device, err)
	}
	defer f.Close() // Ignore error, the mapping survives the close

	pageSize := uintptr(unix.Getpagesize())
	pagemask := ^(pageSize - 1)
	mapAddr := physAddr & pagemask
	length := int(size) + int(physAddr-mapAddr)
	log.Printf("MapRegion(%s, %d, RDWR, 0, %08X), physAddr %08X\n", device, length, mapAddr, physAddr)
	mm, err := mmap.MapRegion(f, length, mmap.RDWR, 0, int64(mapAddr))
	if err != nil {
		return nil, fmt.Errorf("couldn't map region (%08X, %v): %v", physAddr, size, err)
	}
	return &Window{mm: mm, offs: physAddr - mapAddr, size: size}, nil
}

func (w *Window) word(off uint32) *uint32 {
	if off&3 != 0 || off+4 > w.size {
		panic(fmt.Sprintf("regs: offset %X outside %d byte window", off, w.size))
	}
	return (*uint32)(unsafe.Pointer(&w.mm[w.offs+uintptr(off)]))
}

// Read32 and Write32 go through sync/atomic so every access reaches the
// device as exactly one 32-bit load or store.
func (w *Window) Read32(off uint32) uint32 {
	return atomic.LoadUint32(w.word(off))
}

func (w *Window) Write32(off uint32, val uint32) {
	atomic.StoreUint32(w.word(off), val)
}

func (w *Window) Close() error {
	if w.mm == nil {
		return nil
	}
	err := w.mm.Unmap()
	w.mm = nil
	return err
}
