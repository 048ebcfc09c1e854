// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package codec is the single place zbed configures CBOR. Every wire
// message — requests, responses, and subscription frames on the
// service socket — goes through these functions, so both ends of the
// protocol always agree on encoding options.
package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The
// same logical message always produces identical bytes, which keeps
// test fixtures stable.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields, so old
// clients keep working when the service grows new response fields.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Protocol messages use string keys throughout. When decoding
		// into an any-typed target the decoder must pick a concrete
		// map type; map[string]any keeps the result usable by ordinary
		// Go code instead of CBOR's map[any]any default.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using deterministic encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only this package, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, used to delay decoding of
// handler-specific request bodies.
type RawMessage = cbor.RawMessage

// NewEncoder returns a stream encoder writing to w with the standard
// encoding configuration.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder reading from r with the standard
// decoding configuration.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}
