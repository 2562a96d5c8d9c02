package utils

import "encoding/binary"

// Int16FromBytesBE reads a big endian signed 16 bit integer from the first two bytes.
func Int16FromBytesBE(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b))
}
