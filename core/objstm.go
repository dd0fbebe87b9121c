package core

import (
	"bytes"
	"fmt"
)

// ObjectStream is a /Type /ObjStm stream holding several non-stream
// objects. The header of N "objnum offset" pairs is parsed lazily on first
// access.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends *IndirectRef

	entries []objStmEntry
	decoded []byte
	cache   map[int]Object
}

type objStmEntry struct {
	num    int
	offset int
}

// NewObjectStream validates the dictionary of stream and wraps it.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if name, ok := stream.Dict.GetName("Type"); !ok || name != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type: %v", stream.Dict.Get("Type"))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %v", stream.Dict.Get("First"))
	}

	objStm := &ObjectStream{
		stream: stream,
		n:      int(n),
		first:  int(first),
		cache:  make(map[int]Object),
	}
	if ext, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		objStm.extends = &ext
	}
	return objStm, nil
}

// N returns the number of objects in the stream.
func (o *ObjectStream) N() int { return o.n }

// First returns the offset of the first object in the decoded data.
func (o *ObjectStream) First() int { return o.first }

// Extends returns the object stream this one extends, if any.
func (o *ObjectStream) Extends() *IndirectRef { return o.extends }

func (o *ObjectStream) load() error {
	if o.decoded != nil {
		return nil
	}

	decoded, err := o.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if o.first > len(decoded) {
		return fmt.Errorf("/First (%d) exceeds decoded length (%d)", o.first, len(decoded))
	}

	p := NewParser(bytes.NewReader(decoded[:o.first]))
	entries := make([]objStmEntry, 0, o.n)
	for i := 0; i < o.n; i++ {
		num, err1 := p.ParseObject()
		off, err2 := p.ParseObject()
		if err1 != nil || err2 != nil {
			return fmt.Errorf("object stream header truncated at pair %d", i)
		}
		numInt, ok1 := num.(Int)
		offInt, ok2 := off.(Int)
		if !ok1 || !ok2 {
			return fmt.Errorf("object stream header pair %d is not two integers", i)
		}
		entries = append(entries, objStmEntry{num: int(numInt), offset: int(offInt)})
	}

	o.decoded = decoded
	o.entries = entries
	return nil
}

// GetObjectByIndex returns the object at position index together with its
// object number.
func (o *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := o.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(o.entries) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(o.entries))
	}

	num := o.entries[index].num
	if obj, ok := o.cache[index]; ok {
		return obj, num, nil
	}

	start := o.first + o.entries[index].offset
	end := len(o.decoded)
	if index+1 < len(o.entries) {
		end = min(end, o.first+o.entries[index+1].offset)
	}
	if start >= len(o.decoded) || start > end {
		return nil, 0, fmt.Errorf("object %d has offset %d outside decoded data (%d bytes)", num, start, len(o.decoded))
	}

	obj, err := NewParser(bytes.NewReader(o.decoded[start:end])).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}
	o.cache[index] = obj
	return obj, num, nil
}

// GetObjectByNumber returns the object with the given number and its index.
func (o *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := o.load(); err != nil {
		return nil, 0, err
	}
	for i, e := range o.entries {
		if e.num == objNum {
			obj, _, err := o.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers lists the object numbers in header order.
func (o *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := o.load(); err != nil {
		return nil, err
	}
	nums := make([]int, len(o.entries))
	for i, e := range o.entries {
		nums[i] = e.num
	}
	return nums, nil
}
