//go:build linux

package process_linux

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"vmpatch/process"
)

// pieBases lists the ELF_ET_DYN_BASE values the kernel may use on arch,
// highest first. arm64 has one per virtual address size (48, 47, 42, 39 and
// 36 bits); 386 covers the legacy and the current compat layout.
func pieBases(arch string) []process.ProcessMemoryAddress {
	switch arch {
	case "amd64":
		return []process.ProcessMemoryAddress{0x555555554AAA}
	case "arm64":
		return []process.ProcessMemoryAddress{0xAAAAAAAAAAAA, 0x555555555555, 0x2AAAAAAAAAA, 0x5555555555, 0xAAAAAAAAA}
	case "386":
		return []process.ProcessMemoryAddress{0x56555000, 0x400000}
	default:
		return nil
	}
}

// imageInfo is what the ELF headers of a mapped executable say about it.
type imageInfo struct {
	pie      bool
	minVaddr process.ProcessMemoryAddress
	size     process.ProcessMemorySize
	// maxAlign is the largest power-of-two p_align of the loadable segments.
	maxAlign uint64
}

// pieLoadBase is where the kernel puts the first loadable page of an ET_DYN
// image for the given ELF_ET_DYN_BASE: rounded down to the page size and to
// the largest segment alignment, whatever the first segment's vaddr.
func (i imageInfo) pieLoadBase(dynBase process.ProcessMemoryAddress, pageSize uint64) process.ProcessMemoryAddress {
	align := max(pageSize, i.maxAlign)
	return dynBase &^ process.ProcessMemoryAddress(align-1)
}

// defaultBaseFor returns where the image mapped at base would have been
// mapped without randomization. For a PIE that is the highest candidate load
// base not above base; a PIE below every candidate counts as not randomized.
// A fixed-address executable mapped below its link address is an error.
func (i imageInfo) defaultBaseFor(arch string, pageSize uint64, base process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	if !i.pie {
		if base < i.minVaddr {
			return 0, fmt.Errorf("mapped below link address %s: %w", i.minVaddr, process.ErrAborted)
		}
		return i.minVaddr, nil
	}

	for _, dynBase := range pieBases(arch) {
		if def := i.pieLoadBase(dynBase, pageSize); def <= base {
			return def, nil
		}
	}
	return base, nil
}

const maxPhnum = 0xffff

// readImage parses the ELF file header and program headers mapped at base.
// Every failure is reported as process.ErrAborted.
func readImage(io memoryIO, base process.ProcessMemoryAddress) (imageInfo, error) {
	ident := make([]byte, elf.EI_NIDENT)
	if err := readFull(io, ident, base); err != nil {
		return imageInfo{}, err
	}
	if !bytes.Equal(ident[:4], []byte(elf.ELFMAG)) {
		return imageInfo{}, fmt.Errorf("bad ELF magic % x: %w", ident[:4], process.ErrAborted)
	}

	var order binary.ByteOrder
	switch elf.Data(ident[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		order = binary.BigEndian
	default:
		return imageInfo{}, fmt.Errorf("unknown ELF data encoding %d: %w", ident[elf.EI_DATA], process.ErrAborted)
	}

	switch elf.Class(ident[elf.EI_CLASS]) {
	case elf.ELFCLASS64:
		return readImage64(io, base, order)
	case elf.ELFCLASS32:
		return readImage32(io, base, order)
	default:
		return imageInfo{}, fmt.Errorf("unknown ELF class %d: %w", ident[elf.EI_CLASS], process.ErrAborted)
	}
}

func readImage64(io memoryIO, base process.ProcessMemoryAddress, order binary.ByteOrder) (imageInfo, error) {
	var hdr elf.Header64
	if err := readStruct(io, base, order, &hdr); err != nil {
		return imageInfo{}, err
	}
	if int(hdr.Phentsize) != binary.Size(elf.Prog64{}) || hdr.Phnum == 0 || hdr.Phnum >= maxPhnum {
		return imageInfo{}, fmt.Errorf("unexpected program header table (%d x %d bytes): %w", hdr.Phnum, hdr.Phentsize, process.ErrAborted)
	}

	progs := make([]elf.Prog64, hdr.Phnum)
	if err := readStruct(io, base+process.ProcessMemoryAddress(hdr.Phoff), order, progs); err != nil {
		return imageInfo{}, err
	}

	segments := make([]segment, 0, len(progs))
	for _, p := range progs {
		if elf.ProgType(p.Type) == elf.PT_LOAD {
			segments = append(segments, segment{vaddr: p.Vaddr, memsz: p.Memsz, align: p.Align})
		}
	}
	return newImageInfo(elf.Type(hdr.Type), segments)
}

func readImage32(io memoryIO, base process.ProcessMemoryAddress, order binary.ByteOrder) (imageInfo, error) {
	var hdr elf.Header32
	if err := readStruct(io, base, order, &hdr); err != nil {
		return imageInfo{}, err
	}
	if int(hdr.Phentsize) != binary.Size(elf.Prog32{}) || hdr.Phnum == 0 || hdr.Phnum >= maxPhnum {
		return imageInfo{}, fmt.Errorf("unexpected program header table (%d x %d bytes): %w", hdr.Phnum, hdr.Phentsize, process.ErrAborted)
	}

	progs := make([]elf.Prog32, hdr.Phnum)
	if err := readStruct(io, base+process.ProcessMemoryAddress(hdr.Phoff), order, progs); err != nil {
		return imageInfo{}, err
	}

	segments := make([]segment, 0, len(progs))
	for _, p := range progs {
		if elf.ProgType(p.Type) == elf.PT_LOAD {
			segments = append(segments, segment{vaddr: uint64(p.Vaddr), memsz: uint64(p.Memsz), align: uint64(p.Align)})
		}
	}
	return newImageInfo(elf.Type(hdr.Type), segments)
}

type segment struct {
	vaddr, memsz, align uint64
}

func newImageInfo(typ elf.Type, segments []segment) (imageInfo, error) {
	var pie bool
	switch typ {
	case elf.ET_EXEC:
	case elf.ET_DYN:
		pie = true
	default:
		return imageInfo{}, fmt.Errorf("ELF type %v is not an executable: %w", typ, process.ErrAborted)
	}
	if len(segments) == 0 {
		return imageInfo{}, fmt.Errorf("no loadable segments: %w", process.ErrAborted)
	}

	lo, hi := ^uint64(0), uint64(0)
	var maxAlign uint64
	for _, s := range segments {
		if s.align > maxAlign && s.align&(s.align-1) == 0 {
			maxAlign = s.align
		}
		start := s.vaddr
		if s.align > 1 {
			start &^= s.align - 1
		}
		if start < lo {
			lo = start
		}
		if end := s.vaddr + s.memsz; end > hi {
			hi = end
		}
	}
	if hi <= lo {
		return imageInfo{}, fmt.Errorf("empty image: %w", process.ErrAborted)
	}

	return imageInfo{
		pie:      pie,
		minVaddr: process.ProcessMemoryAddress(lo),
		size:     process.ProcessMemorySize(hi - lo),
		maxAlign: maxAlign,
	}, nil
}

func readFull(io memoryIO, b []byte, addr process.ProcessMemoryAddress) error {
	n, err := io.readAt(b, addr)
	if err != nil {
		return fmt.Errorf("%w: %w", process.ErrAborted, err)
	}
	if n != len(b) {
		return fmt.Errorf("short read of %d/%d bytes at %s: %w", n, len(b), addr, process.ErrAborted)
	}
	return nil
}

func readStruct(io memoryIO, addr process.ProcessMemoryAddress, order binary.ByteOrder, v any) error {
	buf := make([]byte, binary.Size(v))
	if err := readFull(io, buf, addr); err != nil {
		return err
	}
	if err := binary.Read(bytes.NewReader(buf), order, v); err != nil {
		return fmt.Errorf("decode ELF header: %w: %w", process.ErrAborted, err)
	}
	return nil
}
