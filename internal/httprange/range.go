package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNoContentRange = errors.New("no Content-Range header")

// ContentRange is an inclusive byte span of a payload with a known total size.
type ContentRange struct {
	Start, End, Size int64
}

// Build the range of a chunk that starts at the given byte offset.
func NewContentRange(start, length, size int64) *ContentRange {
	return &ContentRange{Start: start, End: start + length - 1, Size: size}
}

// Get the length of the chunk described by the range.
func (cr *ContentRange) Length() int64 { return cr.End - cr.Start + 1 }

// Determine whether the given byte-offset of the last byte in the range.
func (cr *ContentRange) IsLastByte() bool {
	return cr.End+1 >= cr.Size
}

// Check the range lies within the declared size.
func (cr *ContentRange) Validate() error {
	if cr.Start < 0 || cr.End < cr.Start {
		return fmt.Errorf("invalid span %d-%d of Content-Range header", cr.Start, cr.End)
	}
	if cr.End >= cr.Size {
		return fmt.Errorf("span %d-%d exceeds size %d of Content-Range header", cr.Start, cr.End, cr.Size)
	}
	return nil
}

// Format the range as a Content-Range header value.
func (cr *ContentRange) String() string {
	return "bytes " + strconv.FormatInt(cr.Start, 10) + "-" + strconv.FormatInt(cr.End, 10) + "/" + strconv.FormatInt(cr.Size, 10)
}

func ParseContentRange(s string) (*ContentRange, error) {
	const b = "bytes "
	if s == "" {
		return nil, ErrNoContentRange
	}
	if !strings.HasPrefix(s, b) {
		return nil, errors.New("invalid unit of Content-Range header")
	}
	r := strings.Split(s[len(b):], "/")
	if len(r) != 2 {
		return nil, errors.New("invalid size of Content-Range header")
	}
	size, err := strconv.ParseInt(strings.TrimSpace(r[1]), 10, 64)
	if err != nil {
		return nil, errors.New("cannot parse size of Content-Range header")
	}
	r = strings.Split(r[0], "-")
	if len(r) != 2 {
		return nil, errors.New("cannot parse Content-Range header, expected format \"start-end\"")
	}
	start, err := strconv.ParseInt(strings.TrimSpace(r[0]), 10, 64)
	if err != nil {
		return nil, errors.New("cannot parse start of Content-Range header")
	}
	end, err := strconv.ParseInt(strings.TrimSpace(r[1]), 10, 64)
	if err != nil {
		return nil, errors.New("cannot parse end of Content-Range header")
	}
	cr := &ContentRange{
		Start: start,
		End:   end,
		Size:  size,
	}
	if err := cr.Validate(); err != nil {
		return nil, err
	}
	return cr, nil
}
