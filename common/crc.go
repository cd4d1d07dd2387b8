// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions shared between the driver and its tests.
// The HDC302x transfers data as 16 bit words, each followed by an 8-bit CRC
// byte on the wire.
package common

import "errors"

// ErrCRC is returned when a received frame fails its CRC check.
var ErrCRC = errors.New("invalid crc")

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Polynomial 0x31, initial value 0xff. This CRC is used by
// sensors from TI and Sensirion.
func CRC8(data []byte) byte {
	crc := byte(0xff)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// AppendWord appends the big-endian bytes of word followed by their CRC to
// dst and returns the extended slice.
func AppendWord(dst []byte, word uint16) []byte {
	dst = append(dst, byte(word>>8), byte(word))
	return append(dst, CRC8(dst[len(dst)-2:]))
}

// PutWord writes word and its CRC into the first 3 bytes of frame.
func PutWord(frame []byte, word uint16) {
	frame[0] = byte(word >> 8)
	frame[1] = byte(word)
	frame[2] = CRC8(frame[:2])
}

// Word extracts the 16 bit word from a 3 byte frame after verifying the
// trailing CRC byte.
func Word(frame []byte) (uint16, error) {
	if CRC8(frame[:2]) != frame[2] {
		return 0, ErrCRC
	}
	return uint16(frame[0])<<8 | uint16(frame[1]), nil
}
