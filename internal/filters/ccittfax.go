package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 or Group 4 fax data.
//
// Recognised parameters: K (<0 selects Group 4), Columns (default 1728),
// Rows (0 means detect), BlackIs1.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}

	rows := getIntParam(params, "Rows", 0)
	if rows == 0 {
		rows = ccitt.AutoDetectHeight
	}

	blackIs1, _ := params["BlackIs1"].(bool)
	opts := &ccitt.Options{Invert: blackIs1}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, getIntParam(params, "Columns", 1728), rows, opts)
	return io.ReadAll(r)
}
