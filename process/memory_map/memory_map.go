package memory_map

import (
	"fmt"
	"sort"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 // Offset into the backing file
	Path    string // Backing file, pseudo-path like [heap], or empty
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Offset: %x, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Offset, mmItem.Path)
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

// GetMemoryRegionForAddress returns the memory region containing an address.
// memoryMap must be sorted by address.
func GetMemoryRegionForAddress(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}
	return nil
}

// Covers reports whether [addr, addr+size) lies within memoryMap without
// gaps. memoryMap must be sorted by address.
func Covers(addr, size uint64, memoryMap []MemoryMapItem) bool {
	end := addr + size
	if end < addr {
		return false
	}
	for addr < end {
		region := GetMemoryRegionForAddress(addr, memoryMap)
		if region == nil {
			return false
		}
		addr = region.End()
	}
	return true
}

// trimDeleted drops the marker the kernel appends to unlinked files.
func trimDeleted(path string) string {
	return strings.TrimSuffix(path, " (deleted)")
}

// FindImage returns the lowest region mapped from offset 0 of path.
func FindImage(path string, memoryMap []MemoryMapItem) (*MemoryMapItem, bool) {
	path = trimDeleted(path)
	var found *MemoryMapItem
	for i := range memoryMap {
		item := &memoryMap[i]
		if item.Offset != 0 || trimDeleted(item.Path) != path {
			continue
		}
		if found == nil || item.Address < found.Address {
			found = item
		}
	}
	return found, found != nil
}

// ImageRegions returns every region backed by path, in address order.
func ImageRegions(path string, memoryMap []MemoryMapItem) []MemoryMapItem {
	path = trimDeleted(path)
	var out []MemoryMapItem
	for _, item := range memoryMap {
		if trimDeleted(item.Path) == path {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out
}
