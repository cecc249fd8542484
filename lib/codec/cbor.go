// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes, which is what makes block hashes
// reproducible.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Core Deterministic Encoding defaults to integer-seconds time,
	// which truncates sub-second precision. Hash-covered records carry
	// nanosecond timestamps, so a snapshot round trip would change the
	// bytes and break hash recomputation. RFC 3339 with nanoseconds is
	// deterministic and lossless.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Transaction detail metadata decodes into any-typed targets.
		// The CBOR default map type for those is
		// map[interface{}]interface{} (CBOR allows non-string keys),
		// which is incompatible with encoding/json and with most Go
		// code expecting map[string]any. Struct field decoding is
		// unaffected by this setting.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, usable to delay decoding or
// to pre-encode output. Type alias so consumers import only lib/codec,
// not fxamacker/cbor directly.
type RawMessage = cbor.RawMessage
