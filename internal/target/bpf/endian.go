package bpf

import (
	"encoding/binary"

	"mcgen/internal/triple"
)

var hostEndian = func() triple.Endian {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	if probe[0] == 1 {
		return triple.EndianLittle
	}
	return triple.EndianBig
}()

// HostEndian returns the byte order chosen by the bpf alias.
func HostEndian() triple.Endian { return hostEndian }
