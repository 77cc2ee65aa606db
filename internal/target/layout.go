package target

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"mcgen/internal/triple"
)

// DataLayout describes how a target lays out data in memory. Alignments are
// in bits like the components of the layout string.
type DataLayout struct {
	Endian          triple.Endian // EndianLittle or EndianBig
	Mangling        byte          // 'e' for ELF, 0 when unspecified
	PointerBits     int
	PointerABIAlign int
	Int1Align       int // 0 = default
	Int64Align      int // 0 = default
	AggregateAlign  int // -1 = default
	// NativeIntWidths lists the widths of native integer registers in
	// ascending order; the last entry is the widest.
	NativeIntWidths []int
	StackAlignBits  int // 0 = unspecified
}

// String renders the layout string. Defaulted components are omitted.
func (dl DataLayout) String() string {
	parts := make([]string, 0, 8)
	if dl.Endian == triple.EndianBig {
		parts = append(parts, "E")
	} else {
		parts = append(parts, "e")
	}
	if dl.Mangling != 0 {
		parts = append(parts, "m:"+string(dl.Mangling))
	}
	if dl.PointerBits > 0 {
		parts = append(parts, fmt.Sprintf("p:%d:%d", dl.PointerBits, dl.PointerABIAlign))
	}
	if dl.Int1Align > 0 {
		parts = append(parts, fmt.Sprintf("i1:%d", dl.Int1Align))
	}
	if dl.Int64Align > 0 {
		parts = append(parts, fmt.Sprintf("i64:%d", dl.Int64Align))
	}
	if dl.AggregateAlign >= 0 {
		parts = append(parts, fmt.Sprintf("a:%d", dl.AggregateAlign))
	}
	if len(dl.NativeIntWidths) > 0 {
		ws := make([]string, len(dl.NativeIntWidths))
		for i, w := range dl.NativeIntWidths {
			ws[i] = strconv.Itoa(w)
		}
		parts = append(parts, "n"+strings.Join(ws, ":"))
	}
	if dl.StackAlignBits > 0 {
		parts = append(parts, fmt.Sprintf("S%d", dl.StackAlignBits))
	}
	return strings.Join(parts, "-")
}

// ParseDataLayout parses the components String emits.
func ParseDataLayout(s string) (DataLayout, error) {
	dl := DataLayout{Endian: triple.EndianLittle, AggregateAlign: -1}
	if s == "" {
		return dl, nil
	}
	for _, comp := range strings.Split(s, "-") {
		var err error
		switch {
		case comp == "e":
			dl.Endian = triple.EndianLittle
		case comp == "E":
			dl.Endian = triple.EndianBig
		case strings.HasPrefix(comp, "m:"):
			if len(comp) != 3 {
				return DataLayout{}, fmt.Errorf("data layout %q: bad mangling component %q", s, comp)
			}
			dl.Mangling = comp[2]
		case strings.HasPrefix(comp, "p:"):
			var vals []int
			vals, err = parseInts(comp[2:], 2)
			if err == nil {
				dl.PointerBits, dl.PointerABIAlign = vals[0], vals[1]
			}
		case strings.HasPrefix(comp, "i1:"):
			dl.Int1Align, err = strconv.Atoi(comp[3:])
		case strings.HasPrefix(comp, "i64:"):
			dl.Int64Align, err = strconv.Atoi(comp[4:])
		case strings.HasPrefix(comp, "a:"):
			dl.AggregateAlign, err = strconv.Atoi(comp[2:])
		case strings.HasPrefix(comp, "n"):
			dl.NativeIntWidths, err = parseInts(comp[1:], -1)
		case strings.HasPrefix(comp, "S"):
			dl.StackAlignBits, err = strconv.Atoi(comp[1:])
		default:
			return DataLayout{}, fmt.Errorf("data layout %q: unknown component %q", s, comp)
		}
		if err != nil {
			return DataLayout{}, fmt.Errorf("data layout %q: component %q: %w", s, comp, err)
		}
	}
	return dl, nil
}

func parseInts(s string, want int) ([]int, error) {
	fields := strings.Split(s, ":")
	if want > 0 && len(fields) != want {
		return nil, fmt.Errorf("want %d values, got %d", want, len(fields))
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative value %d", n)
		}
		out[i] = n
	}
	return out, nil
}

// ByteOrder returns the target's byte order.
func (dl DataLayout) ByteOrder() binary.ByteOrder {
	if dl.Endian == triple.EndianBig {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PointerSize returns the pointer size in bytes.
func (dl DataLayout) PointerSize() int { return dl.PointerBits / 8 }

// MaxNativeIntWidth returns the widest native integer width in bits, or 0.
func (dl DataLayout) MaxNativeIntWidth() int {
	if len(dl.NativeIntWidths) == 0 {
		return 0
	}
	return dl.NativeIntWidths[len(dl.NativeIntWidths)-1]
}

// Equal compares two layouts component by component.
func (dl DataLayout) Equal(o DataLayout) bool {
	return dl.String() == o.String()
}
