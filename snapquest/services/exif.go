package services

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureTime extracts the capture timestamp embedded in image bytes.
// Any decode failure, including a panic inside the decoder, degrades to
// ok=false; it never propagates past the caller.
func CaptureTime(data []byte) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}

	dt, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}

	return dt, true
}
