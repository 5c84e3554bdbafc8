package util

/*
DataInput reads the engine's low-level data types. Fixed-width
integers are big-endian. VInt and VLong store 7 bits per byte, low
bits first, with the high bit set on every byte but the last.

DataInput may only be used from one goroutine, because it keeps
internal state like the file position. Clone an input before handing
it to another goroutine.
*/
type DataInput interface {
	DataReader
	ReadInt() (n int32, err error)
	ReadLong() (n int64, err error)
	ReadVInt() (n int32, err error)
	ReadVLong() (n int64, err error)
	ReadString() (s string, err error)
	SkipVInts(count int) error
}

type DataReader interface {
	/* Reads and returns a single byte.	*/
	ReadByte() (b byte, err error)
	/* Reads len(buf) bytes into buf */
	ReadBytes(buf []byte) error
}

type DataInputImpl struct {
	Reader DataReader
}

func NewDataInput(spi DataReader) *DataInputImpl {
	return &DataInputImpl{Reader: spi}
}

func (in *DataInputImpl) ReadInt() (n int32, err error) {
	var buf [4]byte
	if err = in.Reader.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return int32(buf[0])<<24 | int32(buf[1])<<16 | int32(buf[2])<<8 | int32(buf[3]), nil
}

func (in *DataInputImpl) ReadLong() (n int64, err error) {
	d1, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	d2, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	return (int64(d1) << 32) | int64(d2)&0xFFFFFFFF, nil
}

func (in *DataInputImpl) ReadVInt() (n int32, err error) {
	var u uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := in.Reader.ReadByte()
		if err != nil {
			return 0, err
		}
		u |= uint32(b&0x7F) << shift
		if b < 128 {
			return int32(u), nil
		}
	}
	return 0, CorruptError("Invalid vInt detected (too many bits)")
}

func (in *DataInputImpl) ReadVLong() (n int64, err error) {
	var u uint64
	for shift := uint(0); shift < 70; shift += 7 {
		b, err := in.Reader.ReadByte()
		if err != nil {
			return 0, err
		}
		u |= uint64(b&0x7F) << shift
		if b < 128 {
			return int64(u), nil
		}
	}
	return 0, CorruptError("Invalid vLong detected (too many bits)")
}

func (in *DataInputImpl) ReadString() (s string, err error) {
	length, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", CorruptError("negative string length %v", length)
	}
	bytes := make([]byte, length)
	if err = in.Reader.ReadBytes(bytes); err != nil {
		return "", err
	}
	return string(bytes), nil
}

// SkipVInts reads past count variable-length integers.
func (in *DataInputImpl) SkipVInts(count int) error {
	for ; count > 0; count-- {
		for {
			b, err := in.Reader.ReadByte()
			if err != nil {
				return err
			}
			if b < 128 {
				break
			}
		}
	}
	return nil
}
