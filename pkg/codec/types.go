package codec

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ChunkType is the four-byte tag identifying a chunk's kind.
type ChunkType [4]byte

// Well-known chunk types
var (
	TypeIHDR = ChunkType{'I', 'H', 'D', 'R'}
	TypePLTE = ChunkType{'P', 'L', 'T', 'E'}
	TypeIDAT = ChunkType{'I', 'D', 'A', 'T'}
	TypeIEND = ChunkType{'I', 'E', 'N', 'D'}
	TypeTEXT = ChunkType{'t', 'E', 'X', 't'}
)

// propertyBit is bit 5 of each type byte, the ASCII lowercase bit
const propertyBit = 0x20

// ChunkTypeFromUint32 returns the type whose big-endian encoding is v
func ChunkTypeFromUint32(v uint32) ChunkType {
	var t ChunkType
	binary.BigEndian.PutUint32(t[:], v)
	return t
}

// ParseChunkType converts a four-character name such as "IHDR" to a type
func ParseChunkType(name string) (ChunkType, error) {
	var t ChunkType
	if len(name) != len(t) {
		return t, fmt.Errorf("chunk type %q must be exactly 4 bytes", name)
	}
	copy(t[:], name)
	return t, nil
}

// Uint32 returns the big-endian value of the tag
func (t ChunkType) Uint32() uint32 {
	return binary.BigEndian.Uint32(t[:])
}

func (t ChunkType) String() string {
	for _, b := range t {
		if !isLetter(b) {
			return fmt.Sprintf("0x%08X", t.Uint32())
		}
	}
	return string(t[:])
}

// MarshalText encodes the tag as its String form
func (t ChunkType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts either form produced by MarshalText
func (t *ChunkType) UnmarshalText(text []byte) error {
	s := string(text)
	if strings.HasPrefix(s, "0x") && len(s) == 10 {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return fmt.Errorf("chunk type %q: %w", s, err)
		}
		*t = ChunkTypeFromUint32(uint32(v))
		return nil
	}
	parsed, err := ParseChunkType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsCritical reports whether the ancillary bit (byte 0, bit 5) is clear
func (t ChunkType) IsCritical() bool { return t[0]&propertyBit == 0 }

// IsPublic reports whether the private bit (byte 1, bit 5) is clear
func (t ChunkType) IsPublic() bool { return t[1]&propertyBit == 0 }

// IsReserved reports whether the reserved bit (byte 2, bit 5) is clear,
// as every conforming type requires
func (t ChunkType) IsReserved() bool { return t[2]&propertyBit == 0 }

// IsSafeToCopy reports whether the safe-to-copy bit (byte 3, bit 5) is set
func (t ChunkType) IsSafeToCopy() bool { return t[3]&propertyBit != 0 }

// Chunk is a decoded chunk record.
type Chunk struct {
	Type ChunkType
	Data []byte
}

// FrameSize returns the encoded size of a chunk with dataLen payload bytes
func FrameSize(dataLen int) int {
	return headerSize + dataLen + crcSize
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
