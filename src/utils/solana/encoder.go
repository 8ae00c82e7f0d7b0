package solana

import (
	"bytes"
	"encoding/binary"
)

// Little-endian binary writer matching the bincode/borsh layouts
// used by on-chain programs
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return new(Encoder)
}

func (self *Encoder) U8(v uint8) *Encoder {
	self.buf.WriteByte(v)
	return self
}

func (self *Encoder) U16(v uint16) *Encoder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	self.buf.Write(tmp[:])
	return self
}

func (self *Encoder) U32(v uint32) *Encoder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	self.buf.Write(tmp[:])
	return self
}

func (self *Encoder) U64(v uint64) *Encoder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	self.buf.Write(tmp[:])
	return self
}

func (self *Encoder) I64(v int64) *Encoder {
	return self.U64(uint64(v))
}

func (self *Encoder) Bytes(v []byte) *Encoder {
	self.buf.Write(v)
	return self
}

// Byte slice prefixed with its u64 length (bincode Vec<u8>)
func (self *Encoder) Vec(v []byte) *Encoder {
	self.U64(uint64(len(v)))
	self.buf.Write(v)
	return self
}

func (self *Encoder) PublicKey(v PublicKey) *Encoder {
	self.buf.Write(v[:])
	return self
}

func (self *Encoder) Build() []byte {
	return self.buf.Bytes()
}

// Multi-byte length prefix used in the transaction wire format
func AppendCompactU16(buf []byte, v int) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
