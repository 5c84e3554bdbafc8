package util

/*
DataOutput writes the engine's low-level data types in the format
DataInput reads.

DataOutput may only be used from one goroutine, because it keeps
internal state like the file position.
*/
type DataOutput interface {
	DataWriter
	WriteInt(i int32) error
	WriteVInt(i int32) error
	WriteLong(i int64) error
	WriteVLong(i int64) error
	WriteString(s string) error
	CopyBytes(input DataInput, numBytes int64) error
	CopyVInts(input DataInput, count int) error
}

type DataWriter interface {
	WriteByte(b byte) error
	WriteBytes(buf []byte) error
}

type DataOutputImpl struct {
	Writer     DataWriter
	copyBuffer []byte
}

func NewDataOutput(part DataWriter) *DataOutputImpl {
	assertOK(part != nil)
	return &DataOutputImpl{Writer: part}
}

/*
Writes an int as four bytes, high-order bytes first.
*/
func (out *DataOutputImpl) WriteInt(i int32) error {
	return out.Writer.WriteBytes([]byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)})
}

/*
Writes an int in a variable-length format. Writes between one and
five bytes. Smaller values take fewer bytes. Negative numbers are
written as their unsigned 32-bit pattern and always take five bytes.

	| Value   | Byte 1   | Byte 2   | Byte 3   |
	| 0       | 00000000 |
	| 127     | 01111111 |
	| 128     | 10000000 | 00000001 |
	| 16,383  | 11111111 | 01111111 |
	| 16,384  | 10000000 | 10000000 | 00000001 |
*/
func (out *DataOutputImpl) WriteVInt(i int32) error {
	var buf [5]byte
	n := 0
	u := uint32(i)
	for u&^0x7F != 0 {
		buf[n] = byte(u&0x7F) | 0x80
		n++
		u >>= 7
	}
	buf[n] = byte(u)
	return out.Writer.WriteBytes(buf[:n+1])
}

/*
Writes a long as eight bytes, high-order bytes first.
*/
func (out *DataOutputImpl) WriteLong(i int64) error {
	err := out.WriteInt(int32(i >> 32))
	if err == nil {
		err = out.WriteInt(int32(i))
	}
	return err
}

/*
Writes a long in the VInt format. Used for file offsets, which are
never negative.
*/
func (out *DataOutputImpl) WriteVLong(i int64) error {
	assert2(i >= 0, "negative vlong %v", i)
	var buf [10]byte
	n := 0
	u := uint64(i)
	for u&^0x7F != 0 {
		buf[n] = byte(u&0x7F) | 0x80
		n++
		u >>= 7
	}
	buf[n] = byte(u)
	return out.Writer.WriteBytes(buf[:n+1])
}

/*
Writes a string as a VInt byte length followed by the bytes.
*/
func (out *DataOutputImpl) WriteString(s string) error {
	err := out.WriteVInt(int32(len(s)))
	if err == nil {
		err = out.Writer.WriteBytes([]byte(s))
	}
	return err
}

const DATA_OUTPUT_COPY_BUFFER_SIZE = 16384

func (out *DataOutputImpl) CopyBytes(input DataInput, numBytes int64) error {
	assertOK(numBytes >= 0)
	left := numBytes
	if out.copyBuffer == nil {
		out.copyBuffer = make([]byte, DATA_OUTPUT_COPY_BUFFER_SIZE)
	}
	for left > 0 {
		toCopy := int64(DATA_OUTPUT_COPY_BUFFER_SIZE)
		if left < toCopy {
			toCopy = left
		}
		if err := input.ReadBytes(out.copyBuffer[0:toCopy]); err != nil {
			return err
		}
		if err := out.Writer.WriteBytes(out.copyBuffer[0:toCopy]); err != nil {
			return err
		}
		left -= toCopy
	}
	return nil
}

// CopyVInts copies count VInts byte for byte, without decoding them.
func (out *DataOutputImpl) CopyVInts(input DataInput, count int) error {
	for ; count > 0; count-- {
		for {
			b, err := input.ReadByte()
			if err != nil {
				return err
			}
			if err = out.Writer.WriteByte(b); err != nil {
				return err
			}
			if b < 128 {
				break
			}
		}
	}
	return nil
}
