package services

import (
	"bytes"
	"testing"
)

func TestCaptureTimeRejectsNonImages(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty input", data: nil},
		{name: "plain text", data: []byte("definitely not a photo")},
		{name: "truncated jpeg header", data: []byte{0xFF, 0xD8, 0xFF}},
		{name: "png without exif", data: append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := CaptureTime(tt.data); ok {
				t.Errorf("CaptureTime() = %v, ok = true, want no timestamp", got)
			}
		})
	}
}
