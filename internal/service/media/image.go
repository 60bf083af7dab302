package media

import (
	"encoding/base64"
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DataURIPrefix precedes the base64 payload of every annotated image.
const DataURIPrefix = "data:image/jpeg;base64,"

// ErrUndecodable marks upload bytes that are not a raster image.
var ErrUndecodable = errors.New("image could not be decoded")

// DecodeImage turns raw upload bytes into a BGR frame. The caller owns the Mat.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), ErrUndecodable
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), ErrUndecodable
	}

	return mat, nil
}

// EncodeJPEG encodes a frame as JPEG bytes.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())
	return encoded, nil
}

// EncodeDataURI encodes a frame as JPEG and wraps it in a data URI.
func EncodeDataURI(frame gocv.Mat) (string, error) {
	encoded, err := EncodeJPEG(frame)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(encoded), nil
}
