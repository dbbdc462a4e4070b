package webm

import (
	"github.com/pkg/errors"
)

// ErrPrivateData is returned for a codec-private blob that cannot be unlaced.
var ErrPrivateData = errors.New("webm: malformed codec private data")

func xiphLen(l int) int {
	return 1 + l/255 + l
}

func xiphLace(dst []byte, val int) []byte {
	for val >= 255 {
		dst = append(dst, 255)
		val -= 255
	}
	return append(dst, byte(val))
}

// PackPrivateData packs three setup packets with Xiph lacing: a count byte,
// the laced sizes of the first two, then the packets back to back.
func PackPrivateData(ident, comment, setup []byte) []byte {
	size := 1 + xiphLen(len(ident)) + xiphLen(len(comment)) + len(setup)
	buf := make([]byte, 0, size)

	buf = append(buf, 2)
	buf = xiphLace(buf, len(ident))
	buf = xiphLace(buf, len(comment))

	buf = append(buf, ident...)
	buf = append(buf, comment...)
	buf = append(buf, setup...)
	return buf
}

// PrivateDataCount returns the number of packets in a laced blob.
func PrivateDataCount(blob []byte) int {
	if len(blob) == 0 {
		return 0
	}
	return int(blob[0]) + 1
}

// PrivateDataPart returns packet part of a laced blob. The slice aliases blob.
func PrivateDataPart(blob []byte, part int) ([]byte, error) {
	count := PrivateDataCount(blob)
	if count == 0 || part < 0 || part >= count {
		return nil, errors.Wrapf(ErrPrivateData, "part %d of %d", part, count)
	}

	p := 1
	sizes := make([]int, count)
	total := 0
	for i := 0; i < count-1; i++ {
		v := 0
		for {
			if p >= len(blob) {
				return nil, errors.Wrap(ErrPrivateData, "truncated lace")
			}
			lace := int(blob[p])
			p++
			v += lace
			if lace != 255 {
				break
			}
		}
		sizes[i] = v
		total += v
	}
	sizes[count-1] = len(blob) - total - p
	if sizes[count-1] < 0 {
		return nil, errors.Wrapf(ErrPrivateData, "laced sizes exceed %d bytes", len(blob))
	}

	for i := 0; i < part; i++ {
		p += sizes[i]
	}
	return blob[p : p+sizes[part]], nil
}

// UnpackPrivateData splits a laced blob into exactly three packets.
func UnpackPrivateData(blob []byte) ([3][]byte, error) {
	var out [3][]byte
	if n := PrivateDataCount(blob); n != 3 {
		return out, errors.Wrapf(ErrPrivateData, "expected 3 packets, found %d", n)
	}
	for i := range out {
		part, err := PrivateDataPart(blob, i)
		if err != nil {
			return out, err
		}
		out[i] = part
	}
	return out, nil
}
