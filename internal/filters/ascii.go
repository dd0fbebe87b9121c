package filters

import (
	"bytes"
	"fmt"
)

// ASCIIHexDecode decodes pairs of hex digits into bytes. Whitespace is
// skipped, '>' ends the data, and a trailing odd digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false

	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, err := hexDigitToByte(c)
		if err != nil {
			return nil, err
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}

	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data. 'z' stands for four zero bytes and
// "~>" ends the data.
func ASCII85Decode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	group := make([]byte, 0, 5)

	flush := func() {
		if len(group) == 0 {
			return
		}
		n := len(group) - 1
		for len(group) < 5 {
			group = append(group, 84)
		}
		var v uint32
		for _, d := range group {
			v = v*85 + uint32(d)
		}
		for j := 0; j < n; j++ {
			out.WriteByte(byte(v >> (24 - 8*j)))
		}
		group = group[:0]
	}

	data = bytes.TrimPrefix(bytes.TrimLeft(data, " \t\r\n\f\x00"), []byte("<~"))

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isWhitespace(c):
			continue
		case c == '~':
			flush()
			return out.Bytes(), nil
		case c == 'z' && len(group) == 0:
			out.Write([]byte{0, 0, 0, 0})
		case c < '!' || c > 'u':
			return nil, fmt.Errorf("invalid ASCII85 character: %c", c)
		default:
			group = append(group, c-'!')
			if len(group) == 5 {
				flush()
			}
		}
	}

	flush()
	return out.Bytes(), nil
}

func hexDigitToByte(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit: %c", c)
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
