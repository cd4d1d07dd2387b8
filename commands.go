// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hdc302x

import "time"

// command describes one 16 bit command word and the shape of its exchange.
type command struct {
	word uint16
	// read is the number of data words the device returns. Each word is
	// followed by a CRC byte on the wire.
	read int
}

// SampleRate selects how often the device acquires a sample in auto
// measurement mode. The datasheet recommends not sampling more often than
// once per second to avoid self-heating of the sensor.
type SampleRate int

const (
	// Every other second.
	RateHalfHertz SampleRate = iota
	// Once per second.
	RateHertz
	RateTwoHertz
	RateFourHertz
	Rate10Hertz
)

// PowerMode selects the trade-off between measurement noise and power draw.
// LowPower0 is the most accurate setting and the one to use unless the
// supply budget is very tight.
type PowerMode int

const (
	LowPower0 PowerMode = iota
	LowPower1
	LowPower2
	LowPower3
)

// Auto measurement mode start commands, indexed by [SampleRate][PowerMode].
var autoModeCommands = [5][4]command{
	{{word: 0x2032}, {word: 0x2024}, {word: 0x202f}, {word: 0x20ff}},
	{{word: 0x2130}, {word: 0x2126}, {word: 0x212d}, {word: 0x21ff}},
	{{word: 0x2236}, {word: 0x2220}, {word: 0x222b}, {word: 0x22ff}},
	{{word: 0x2334}, {word: 0x2322}, {word: 0x2329}, {word: 0x23ff}},
	{{word: 0x2737}, {word: 0x2721}, {word: 0x272a}, {word: 0x27ff}},
}

// Time between samples for each SampleRate.
var samplePeriods = [5]time.Duration{2 * time.Second, time.Second, 500 * time.Millisecond, 250 * time.Millisecond, 100 * time.Millisecond}

// One-shot measurement trigger commands, indexed by PowerMode. The result is
// read back in a separate bus transaction once the conversion has finished.
var oneShotCommands = [4]command{{word: 0x2400}, {word: 0x240b}, {word: 0x2416}, {word: 0x24ff}}

var (
	cmdReadAuto      = command{word: 0xe000, read: 2}
	cmdExitAuto      = command{word: 0x3093}
	cmdReadStatus    = command{word: 0xf32d, read: 1}
	cmdClearStatus   = command{word: 0x3041}
	cmdHeaterEnable  = command{word: 0x306d}
	cmdHeaterDisable = command{word: 0x3066}
	cmdHeaterPower   = command{word: 0x306e}
	cmdReadOffsets   = command{word: 0xa004, read: 1}
	cmdWriteOffsets  = command{word: 0xa004}
	cmdManufacturer  = command{word: 0x3781, read: 1}
	cmdReset         = command{word: 0x30a2}

	// The 48 bit serial number is read as three consecutive words.
	cmdSerial = [3]command{
		{word: 0x3683, read: 1},
		{word: 0x3684, read: 1},
		{word: 0x3685, read: 1},
	}
)

// Indexes into the threshold command tables below.
const (
	alertSet = 0
	clearSet = 1
)

// Threshold write and readback commands, indexed by [set][level] where set is
// alertSet or clearSet and level is 0 for low, 1 for high.
var cmdSetThreshold = [2][2]command{
	{{word: 0x6100}, {word: 0x611d}},
	{{word: 0x610b}, {word: 0x6116}},
}

var cmdReadThreshold = [2][2]command{
	{{word: 0xe102, read: 1}, {word: 0xe11f, read: 1}},
	{{word: 0xe109, read: 1}, {word: 0xe114, read: 1}},
}
