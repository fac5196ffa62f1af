package utils

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// TakenAt returns the capture time of an image file as a Unix timestamp,
// preferring EXIF DateTime and falling back to the file's modification
// time when no usable EXIF block exists. Returns 0 if the file cannot
// be read at all.
func TakenAt(filePath string) int64 {
	if ts := exifTakenAt(filePath); ts != nil {
		return *ts
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

// helper to safely read the EXIF capture time; nil when the file has no
// EXIF data or the timestamp tags are missing
func exifTakenAt(filePath string) *int64 {
	file, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	exifData, err := exif.Decode(file)
	if err != nil {
		// not an error worth reporting, file might just lack EXIF data
		return nil
	}

	dt, err := exifData.DateTime()
	if err != nil {
		return nil
	}
	ts := dt.Unix()
	return &ts
}
