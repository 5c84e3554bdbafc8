package util

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	SEGMENTS          = "segments"
	SEGMENTS_GEN_FILE = "segments"
)

func FormatBase36(n int64) string {
	return strconv.FormatUint(uint64(n), 36)
}

/*
ParseBase36 decodes the leading base-36 digits of s. It stops at the
first character that is not a digit or a lower-case letter.
*/
func ParseBase36(s string) int64 {
	var u uint64
	for _, c := range s {
		switch {
		case '0' <= c && c <= '9':
			u = u*36 + uint64(c-'0')
		case 'a' <= c && c <= 'z':
			u = u*36 + uint64(c-'a'+10)
		default:
			return int64(u)
		}
	}
	return int64(u)
}

/*
FileNameFromGeneration computes base_<gen36>.ext. A generation of -1
means the file does not exist and yields "". An empty ext drops the
extension.
*/
func FileNameFromGeneration(base, ext string, gen int64) string {
	if gen == -1 {
		return ""
	}
	if ext == "" {
		return fmt.Sprintf("%v_%v", base, FormatBase36(gen))
	}
	return fmt.Sprintf("%v_%v.%v", base, FormatBase36(gen), ext)
}

// FileNameForGenField computes base_<gen36>.<ext><fieldNum>, or "" for gen -1.
func FileNameForGenField(base, ext string, gen int64, fieldNum int) string {
	if gen == -1 {
		return ""
	}
	return fmt.Sprintf("%v_%v.%v%v", base, FormatBase36(gen), ext, fieldNum)
}

func SegmentsFileName(gen int64) string {
	return fmt.Sprintf("%v_%v", SEGMENTS, FormatBase36(gen))
}

func SegmentFileName(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}

/* Returns the generation of a segments_N file name, or -1. */
func GenerationFromSegmentsFileName(fileName string) int64 {
	if !strings.HasPrefix(fileName, SEGMENTS+"_") {
		return -1
	}
	return ParseBase36(fileName[len(SEGMENTS)+1:])
}

/*
ParseSegmentName returns the segment part of a per-segment file name:
"_a_3.del" and "_a.frq" both give "_a".
*/
func ParseSegmentName(filename string) string {
	if !strings.HasPrefix(filename, "_") {
		return filename
	}
	if idx := strings.IndexAny(filename[1:], "_."); idx >= 0 {
		return filename[:idx+1]
	}
	return filename
}

func FileExtension(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		return filename[idx+1:]
	}
	return ""
}

func StripExtension(filename string) string {
	if idx := strings.Index(filename, "."); idx != -1 {
		return filename[0:idx]
	}
	return filename
}

/* Returns the generation from a per-segment file name, or 0 if there is none. */
func ParseGeneration(filename string) int64 {
	base := StripExtension(filename)
	if !strings.HasPrefix(base, "_") {
		return 0
	}
	if idx := strings.Index(base[1:], "_"); idx >= 0 {
		return ParseBase36(base[idx+2:])
	}
	return 0
}
