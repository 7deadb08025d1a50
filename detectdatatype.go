package proteomisc

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType attempts to detect the data type of a stream by peeking at
// its leading bytes and checking against a set of known signatures. Byte code
// signatures from https://stackoverflow.com/a/19127748/199475
func DetectDataType(r *bufio.Reader) (DataType, error) {
	buff, err := r.Peek(6)
	if err != nil && len(buff) < 3 {
		return DataTypeInvalid, err
	}

	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReader wraps the reader in a decompressor if its leading
// bytes indicate a known compression format. Uploaded instrument exports are
// frequently gzipped or zipped before transfer; callers get back a reader
// that always yields the uncompressed payload. For zip archives, the reader
// is positioned at the first file entry in the archive.
func MaybeDecompressReader(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)

	dt, err := DetectDataType(buffered)
	if err != nil {
		return nil, err
	}

	switch dt {
	case DataTypeGzip:
		return gzip.NewReader(buffered)
	case DataTypeZip:
		zr := zipstream.NewReader(buffered)
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		return zr, nil
	case DataTypeBZip2:
		return bzip2.NewReader(buffered), nil
	case DataTypeXZ:
		reader, err := xz.NewReader(buffered, 0)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case DataTypeZ:
		return zlib.NewReader(buffered)
	}

	// No known signature. Assume the payload is uncompressed.
	return buffered, nil
}
