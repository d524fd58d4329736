package protocol

// protocol_test.go covers record framing: multiple requests and responses
// over one stream, in order, with no length prefix.

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestRequestStreamRoundTrip(t *testing.T) {
	var stream bytes.Buffer
	out := NewCodec(&stream)

	requests := []Request{
		{Op: OpSet, Key: "a", Value: "1"},
		{Op: OpGet, Key: "a"},
		{Op: OpRemove, Key: "a"},
	}
	for _, req := range requests {
		if err := out.WriteRequest(req); err != nil {
			t.Fatalf("WriteRequest %+v: %v", req, err)
		}
	}

	in := NewCodec(&stream)
	for i, want := range requests {
		got, err := in.ReadRequest()
		if err != nil {
			t.Fatalf("ReadRequest %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("ReadRequest %d: got %+v, want %+v", i, got, want)
		}
	}
	if _, err := in.ReadRequest(); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadRequest past end: got %v, want io.EOF", err)
	}
}

func TestResponseStreamRoundTrip(t *testing.T) {
	var stream bytes.Buffer
	out := NewCodec(&stream)

	value := "hello"
	responses := []Response{
		OkResponse(),
		ValueResponse(&value),
		ValueResponse(nil),
		ErrResponse("Key not found"),
	}
	for _, resp := range responses {
		if err := out.WriteResponse(resp); err != nil {
			t.Fatalf("WriteResponse %+v: %v", resp, err)
		}
	}

	in := NewCodec(&stream)
	for i, want := range responses {
		got, err := in.ReadResponse()
		if err != nil {
			t.Fatalf("ReadResponse %d: %v", i, err)
		}
		if got.OK != want.OK || got.Err != want.Err {
			t.Fatalf("ReadResponse %d: got %+v, want %+v", i, got, want)
		}
		switch {
		case want.Value == nil && got.Value != nil:
			t.Fatalf("ReadResponse %d: got value %q, want none", i, *got.Value)
		case want.Value != nil && (got.Value == nil || *got.Value != *want.Value):
			t.Fatalf("ReadResponse %d: value mismatch", i)
		}
	}
}

func TestReadRequestRejectsUnknownOp(t *testing.T) {
	var stream bytes.Buffer
	stream.WriteString(`{"op":"drop","key":"k"}`)

	if _, err := NewCodec(&stream).ReadRequest(); err == nil {
		t.Fatal("unknown op decoded successfully, want error")
	}
}
