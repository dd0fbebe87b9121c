package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params holds decode parameters taken from a stream's /DecodeParms entry.
type Params map[string]interface{}

// FlateDecode inflates zlib data and undoes any predictor named in params.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		// Truncated streams are common in the wild; keep what inflated cleanly.
		if len(out) == 0 || err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("zlib decompression failed: %w", err)
		}
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor == 1 {
		return out, nil
	}

	out, err = unpredict(out, predictor, params)
	if err != nil {
		return nil, fmt.Errorf("predictor failed: %w", err)
	}
	return out, nil
}

// FlateEncode deflates data with the default compression level.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compression: %w", err)
	}
	return buf.Bytes(), nil
}

// unpredict dispatches to the TIFF or PNG predictor decoder.
func unpredict(data []byte, predictor int, params Params) ([]byte, error) {
	switch {
	case predictor == 2:
		return tiffPredictor2(data, params)
	case predictor >= 10 && predictor <= 15:
		return pngPredictor(data, params)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

// tiffPredictor2 reverses horizontal differencing for 8-bit samples.
func tiffPredictor2(data []byte, params Params) ([]byte, error) {
	colors := getIntParam(params, "Colors", 1)
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF Predictor 2 only supports 8 bits per component, got %d", bpc)
	}

	rowSize := getIntParam(params, "Columns", 1) * colors
	if rowSize <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	out := make([]byte, len(data))
	for start := 0; start < len(data); start += rowSize {
		for i := start; i < start+rowSize; i++ {
			if i-start < colors {
				out[i] = data[i]
			} else {
				out[i] = data[i] + out[i-colors]
			}
		}
	}
	return out, nil
}

// pngPredictor reverses per-row PNG filtering. Every input row carries a
// leading filter-type byte that is dropped from the output.
func pngPredictor(data []byte, params Params) ([]byte, error) {
	colors := getIntParam(params, "Colors", 1)
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("PNG predictor only supports 8 bits per component, got %d", bpc)
	}

	width := getIntParam(params, "Columns", 1) * colors
	stride := width + 1
	if width <= 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*width)
	prev := make([]byte, width)

	for row := 0; row < rows; row++ {
		in := data[row*stride+1 : (row+1)*stride]
		cur := out[row*width : (row+1)*width]
		kind := data[row*stride]

		for i := range in {
			var left, upLeft byte
			if i >= colors {
				left = cur[i-colors]
				upLeft = prev[i-colors]
			}
			up := prev[i]

			switch kind {
			case 0:
				cur[i] = in[i]
			case 1:
				cur[i] = in[i] + left
			case 2:
				cur[i] = in[i] + up
			case 3:
				cur[i] = in[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = in[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("failed to decode row %d: unknown PNG predictor: %d", row, kind)
			}
		}
		prev = cur
	}

	return out, nil
}

// paeth picks whichever of left, up, or upper-left is closest to
// left + up - upLeft.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

// getIntParam reads an integer parameter, falling back to def.
func getIntParam(params Params, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
