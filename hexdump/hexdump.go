// Package hexdump converts between hex strings and bytes and renders colored
// hex dumps of process memory.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"vmpatch/coloransi"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartOffset is the address printed for the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// Color enables ANSI escapes. When false the dump is plain text.
	Color bool

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode

	// Compare, when set, marks every byte that differs from the byte at the
	// same index in Compare (bytes past its end count as different).
	Compare        []byte
	DiffColor      coloransi.ColorCode
	DiffBackground coloransi.ColorCode
	// DiffMarker replaces coloring of differing bytes when Color is false.
	DiffMarker byte

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:      16,
		ShowASCII:         true,
		OffsetWidth:       12,
		Color:             true,
		OffsetColor:       coloransi.Cyan,
		HexColor:          coloransi.Green,
		ASCIIColor:        coloransi.White,
		NonPrintableColor: coloransi.Red,
		ZeroColor:         coloransi.BrightBlack,
		DiffColor:         coloransi.Yellow,
		DiffBackground:    coloransi.Red,
		DiffMarker:        '*',
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := offset + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}

		formatLine(writer, data[offset:end], offset, options)
		lineCount++
	}
}

// DumpDiff renders actual and expected one after the other, each with the
// bytes that differ from the other one marked.
func DumpDiff(actual, expected []byte, start uint64, options HexDumpOptions) string {
	var buffer bytes.Buffer
	options.StartOffset = start

	fmt.Fprintln(&buffer, "actual:")
	options.Compare = expected
	DumpToWriter(&buffer, actual, options)

	fmt.Fprintln(&buffer, "expected:")
	options.Compare = actual
	DumpToWriter(&buffer, expected, options)

	return buffer.String()
}

func (o HexDumpOptions) paint(fg coloransi.ColorCode, text string) string {
	if !o.Color {
		return text
	}
	return coloransi.Foreground(fg, text)
}

func (o HexDumpOptions) differs(index int, b byte) bool {
	if o.Compare == nil {
		return false
	}
	return index >= len(o.Compare) || o.Compare[index] != b
}

// formatLine formats a single line of the hex dump. index is the position of
// the line's first byte within the dumped data.
func formatLine(writer io.Writer, data []byte, index int, options HexDumpOptions) {
	offsetStr := fmt.Sprintf("%0"+strconv.Itoa(options.OffsetWidth)+"x", options.StartOffset+uint64(index))
	fmt.Fprint(writer, options.paint(options.OffsetColor, offsetStr), "  ")

	hexParts := formatHexValues(data, index, options)

	// The mid-line divider only appears once the line reaches past half of BytesPerLine.
	useSplit := options.BytesPerLine >= 8 && len(data) > (options.BytesPerLine/2)
	half := options.BytesPerLine / 2

	if useSplit {
		fmt.Fprint(writer, strings.Join(hexParts[:half], " "), " | ", strings.Join(hexParts[half:], " "))
	} else {
		fmt.Fprint(writer, strings.Join(hexParts, " "))
	}

	// Padding keeps the ASCII column aligned on short lines.
	if options.BytesPerLine > len(data) {
		cellWidth := 3
		if options.Compare != nil && !options.Color {
			cellWidth = 4
		}
		padding := (options.BytesPerLine - len(data)) * cellWidth
		if options.BytesPerLine >= 8 && !useSplit {
			padding += 2
		}
		fmt.Fprint(writer, strings.Repeat(" ", padding))
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")
		formatASCII(writer, data, index, options)
	}

	fmt.Fprintln(writer)
}

// formatASCII formats the ASCII part of a hex dump line
func formatASCII(writer io.Writer, data []byte, index int, options HexDumpOptions) {
	for i, b := range data {
		c := rune(b)
		text := "."
		color := options.NonPrintableColor
		switch {
		case b == 0:
			color = options.ZeroColor
		case b < unicode.MaxASCII && unicode.IsPrint(c):
			text = string(c)
			color = options.ASCIIColor
		}

		if options.Color && options.differs(index+i, b) {
			fmt.Fprint(writer, coloransi.Color(options.DiffColor, options.DiffBackground, text))
			continue
		}
		fmt.Fprint(writer, options.paint(color, text))
	}
}

// formatHexValues formats each byte of the line, marking differing bytes
func formatHexValues(data []byte, index int, options HexDumpOptions) []string {
	result := make([]string, 0, len(data))

	for i, b := range data {
		hexValue := fmt.Sprintf("%02x", b)
		color := options.HexColor
		if b == 0 {
			color = options.ZeroColor
		}

		diff := options.differs(index+i, b)
		switch {
		case diff && options.Color:
			result = append(result, coloransi.Color(options.DiffColor, options.DiffBackground, hexValue))
		case diff:
			result = append(result, hexValue+string(options.DiffMarker))
		case options.Compare != nil && !options.Color:
			result = append(result, hexValue+" ")
		default:
			result = append(result, options.paint(color, hexValue))
		}
	}

	return result
}
