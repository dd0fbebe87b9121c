package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfrecolor/internal/filters"
)

// ErrUnsupportedFilter is returned by Decode when a stream uses a filter
// this package cannot undo. Callers that only need to edit some streams
// can test for it and leave the stream untouched.
var ErrUnsupportedFilter = errors.New("unsupported stream filter")

// Filters returns the stream's filter names in application order.
func (s *Stream) Filters() ([]string, error) {
	switch f := s.Dict.Get("Filter").(type) {
	case nil, Null:
		return nil, nil
	case Name:
		return []string{string(f)}, nil
	case Array:
		names := make([]string, len(f))
		for i, obj := range f {
			n, ok := obj.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, obj)
			}
			names[i] = string(n)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("invalid Filter type: %T", f)
	}
}

// Decode runs the stream data through its filter chain and returns the
// decoded bytes.
func (s *Stream) Decode() ([]byte, error) {
	names, err := s.Filters()
	if err != nil {
		return nil, err
	}

	paramsObj := s.Dict.Get("DecodeParms")
	data := s.Data
	for i, name := range names {
		var params Dict
		if arr, ok := paramsObj.(Array); ok {
			params = paramsObjToDict(arr.Get(i))
		} else {
			params = paramsObjToDict(paramsObj)
		}

		data, err = decodeWithFilter(data, name, params)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}
	return data, nil
}

// NewFlateStream builds a stream carrying data compressed with FlateDecode.
// Entries of dict other than the filter, its parameters and the length are
// kept.
func NewFlateStream(dict Dict, data []byte) (*Stream, error) {
	encoded, err := filters.FlateEncode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compress stream: %w", err)
	}

	out := dict.Clone()
	delete(out, "DecodeParms")
	delete(out, "DL")
	out["Filter"] = Name("FlateDecode")
	out["Length"] = Int(len(encoded))

	return &Stream{Dict: out, Data: encoded}, nil
}

func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "CCITTFaxDecode", "CCF":
		return filters.CCITTFaxDecode(data, dictToParams(params))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filterName)
}

func paramsObjToDict(obj Object) Dict {
	dict, _ := obj.(Dict)
	return dict
}

// dictToParams converts PDF values to the plain Go values the filters
// package expects.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
