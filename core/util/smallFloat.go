package util

import (
	"math"
)

/*
FloatToByte encodes f in eight bits: three mantissa bits and a zero
exponent of 15. Smallest non-zero value is 5.820766E-10, largest is
7.5161928E9, epsilon 0.125. Negative values and zero encode as 0.
*/
func FloatToByte(f float32) byte {
	bits := math.Float32bits(f)
	smallfloat := int32(bits >> (24 - 3))
	if int32(bits) <= 0 {
		return 0
	}
	if smallfloat <= ((63 - 15) << 3) {
		return 1
	}
	if smallfloat >= ((63-15)<<3)+0x100 {
		return 0xff
	}
	return byte(smallfloat - ((63 - 15) << 3))
}

func ByteToFloat(b byte) float32 {
	if b == 0 {
		return 0
	}
	bits := (uint32(b) << (24 - 3)) + ((63 - 15) << 24)
	return math.Float32frombits(bits)
}
