// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"bytes"
	"errors"
	"testing"
)

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
		{bytes: []byte{0x30, 0x00}, result: 0x33},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=0x%x received 0x%x", test.bytes, test.result, res)
		}
	}
}

func TestFraming(t *testing.T) {
	frame := AppendWord(nil, 0xbeef)
	if !bytes.Equal(frame, []byte{0xbe, 0xef, 0x92}) {
		t.Errorf("AppendWord(nil, 0xbeef)=%#v", frame)
	}

	buf := make([]byte, 3)
	PutWord(buf, 0xabcd)
	if !bytes.Equal(buf, []byte{0xab, 0xcd, 0x6f}) {
		t.Errorf("PutWord(0xabcd)=%#v", buf)
	}

	word, err := Word(buf)
	if err != nil || word != 0xabcd {
		t.Errorf("Word(%#v)=0x%x, %v", buf, word, err)
	}

	buf[2] ^= 0xff
	if _, err := Word(buf); !errors.Is(err, ErrCRC) {
		t.Errorf("Word() with corrupted CRC returned %v, expected ErrCRC", err)
	}
}
