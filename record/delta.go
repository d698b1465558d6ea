package record

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/structarray/errs"
)

// EncodeBlockDelta copies src to dst, replacing every record after the first with
// its XOR against the previous record. Slowly changing records turn into runs of
// zero bytes.
//
// A trailing partial record fails with errs.ErrTruncatedSource after every
// complete record has been written.
func EncodeBlockDelta(dst io.Writer, src io.Reader, stride int) error {
	return blockDelta(dst, src, stride, false)
}

// DecodeBlockDelta reverses EncodeBlockDelta.
func DecodeBlockDelta(dst io.Writer, src io.Reader, stride int) error {
	return blockDelta(dst, src, stride, true)
}

func blockDelta(dst io.Writer, src io.Reader, stride int, decode bool) error {
	if stride <= 0 {
		return fmt.Errorf("%w: %d", errs.ErrInvalidStride, stride)
	}

	prev := make([]byte, stride)
	cur := make([]byte, stride)
	out := make([]byte, stride)

	for n := 0; ; n++ {
		got, err := io.ReadFull(src, cur)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: record %d has %d of %d bytes", errs.ErrTruncatedSource, n, got, stride)
		}
		if err != nil {
			return errs.IO("read block", err)
		}

		// prev always holds the previous raw record; zero before the first one
		for i := range cur {
			out[i] = cur[i] ^ prev[i]
		}

		if decode {
			copy(prev, out)
		} else {
			copy(prev, cur)
		}

		if _, err := dst.Write(out); err != nil {
			return errs.IO("write block", err)
		}
	}
}
