// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hdc302x

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// configReadOps returns the bus operations for one Configuration() call. The
// offsets and the four threshold registers vary between tests, everything
// else is fixed.
func configReadOps(offsets []byte, thresholds [4][]byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: testAddr, W: []byte{0x36, 0x83}, R: []byte{0xc2, 0x95, 0x3e}},
		{Addr: testAddr, W: []byte{0x36, 0x84}, R: []byte{0xb1, 0x49, 0x51}},
		{Addr: testAddr, W: []byte{0x36, 0x85}, R: []byte{0x15, 0x21, 0x2f}},
		{Addr: testAddr, W: []byte{0x37, 0x81}, R: []byte{0x30, 0x00, 0x33}},
		{Addr: testAddr, W: []byte{0xa0, 0x04}, R: offsets},
		{Addr: testAddr, W: []byte{0xf3, 0x2d}, R: []byte{0x00, 0x00, 0x81}},
		{Addr: testAddr, W: []byte{0xe1, 0x02}, R: thresholds[0]},
		{Addr: testAddr, W: []byte{0xe1, 0x1f}, R: thresholds[1]},
		{Addr: testAddr, W: []byte{0xe1, 0x09}, R: thresholds[2]},
		{Addr: testAddr, W: []byte{0xe1, 0x14}, R: thresholds[3]},
	}
}

var zeroOffsets = []byte{0x80, 0x80, 0xd8}

// Factory default-ish threshold registers.
var defaultThresholds = [4][]byte{
	{0x4c, 0x1d, 0xb3},
	{0xbe, 0xdb, 0x93},
	{0x58, 0x2b, 0x3d},
	{0xb2, 0xcc, 0xf3},
}

func TestConfiguration(t *testing.T) {
	ops := []i2ctest.IO{opStart}
	ops = append(ops, configReadOps(zeroOffsets, defaultThresholds)...)
	dev := getDev(t, ops)
	defer shutdown(t)

	cfg, err := dev.Configuration()
	if err != nil {
		t.Fatal(err)
	}
	t.Log(cfg)

	if cfg.ManufacturerID != 0x3000 {
		t.Errorf("unexpected manufacturer ID 0x%x", cfg.ManufacturerID)
	}
	if cfg.SampleRate != RateFourHertz {
		t.Errorf("unexpected sample rate %d", cfg.SampleRate)
	}
	if !liveDevice {
		if cfg.SerialNumber != 0xc295b1491521 {
			t.Errorf("unexpected serial number 0x%x", cfg.SerialNumber)
		}
		if cfg.Status != 0 {
			t.Errorf("unexpected status 0x%x", cfg.Status)
		}
		if cfg.TemperatureOffset != 0 || cfg.HumidityOffset != 0 {
			t.Errorf("expected zero offsets, got %s / %s", cfg.TemperatureOffset, cfg.HumidityOffset)
		}
	}
}

func TestSetOffsets(t *testing.T) {
	newOffsets := []byte{0x19, 0xba, 0x48}
	ops := []i2ctest.IO{opStart}
	ops = append(ops, configReadOps(zeroOffsets, defaultThresholds)...)
	ops = append(ops, opExitAuto)
	ops = append(ops, configReadOps(zeroOffsets, defaultThresholds)...)
	ops = append(ops, i2ctest.IO{Addr: testAddr, W: []byte{0xa0, 0x04, 0x19, 0xba, 0x48}})
	ops = append(ops, configReadOps(newOffsets, defaultThresholds)...)

	dev := getDev(t, ops)
	defer shutdown(t)

	cfg, err := dev.Configuration()
	if err != nil {
		t.Fatal(err)
	}
	// 58 temperature LSBs and -25 humidity LSBs.
	cfg.TemperatureOffset = 9912 * physic.MilliKelvin
	cfg.HumidityOffset = -48830 * physic.MicroRH
	if err := dev.SetConfiguration(cfg); err != nil {
		t.Fatal(err)
	}

	readback, err := dev.Configuration()
	if err != nil {
		t.Fatal(err)
	}
	tLSBf := tempOffsetLSB * float64(physic.Celsius)
	tLSB := physic.Temperature(tLSBf)
	if diff := readback.TemperatureOffset - cfg.TemperatureOffset; diff > tLSB || diff < -tLSB {
		t.Errorf("temperature offset readback %s, wrote %s", readback.TemperatureOffset, cfg.TemperatureOffset)
	}
	hLSBf := humOffsetLSB * float64(physic.PercentRH)
	hLSB := physic.RelativeHumidity(hLSBf)
	if diff := readback.HumidityOffset - cfg.HumidityOffset; diff > hLSB || diff < -hLSB {
		t.Errorf("humidity offset readback %s, wrote %s", readback.HumidityOffset, cfg.HumidityOffset)
	}
}

func TestSetThresholds(t *testing.T) {
	newThresholds := [4][]byte{
		{0x34, 0x66, 0xad},
		{0xcd, 0x33, 0xfd},
		{0x38, 0x69, 0x37},
		{0xc9, 0x2d, 0x22},
	}
	ops := []i2ctest.IO{opStart}
	ops = append(ops, configReadOps(zeroOffsets, defaultThresholds)...)
	ops = append(ops, opExitAuto)
	ops = append(ops, configReadOps(zeroOffsets, defaultThresholds)...)
	ops = append(ops,
		i2ctest.IO{Addr: testAddr, W: []byte{0x61, 0x00, 0x34, 0x66, 0xad}},
		i2ctest.IO{Addr: testAddr, W: []byte{0x61, 0x1d, 0xcd, 0x33, 0xfd}},
		i2ctest.IO{Addr: testAddr, W: []byte{0x61, 0x0b, 0x38, 0x69, 0x37}},
		i2ctest.IO{Addr: testAddr, W: []byte{0x61, 0x16, 0xc9, 0x2d, 0x22}})
	ops = append(ops, configReadOps(zeroOffsets, newThresholds)...)

	dev := getDev(t, ops)
	defer shutdown(t)

	cfg, err := dev.Configuration()
	if err != nil {
		t.Fatal(err)
	}
	cfg.AlertThresholds.Low = Threshold{
		Temperature: physic.ZeroCelsius - 10*physic.Celsius,
		Humidity:    21 * physic.PercentRH,
	}
	cfg.AlertThresholds.High = Threshold{
		Temperature: physic.ZeroCelsius + 60*physic.Celsius,
		Humidity:    80 * physic.PercentRH,
	}
	cfg.ClearThresholds.Low = Threshold{
		Temperature: physic.ZeroCelsius - 9*physic.Celsius,
		Humidity:    22 * physic.PercentRH,
	}
	cfg.ClearThresholds.High = Threshold{
		Temperature: physic.ZeroCelsius + 58*physic.Celsius,
		Humidity:    785 * physic.PercentRH / 10,
	}
	if err := dev.SetConfiguration(cfg); err != nil {
		t.Fatal(err)
	}

	readback, err := dev.Configuration()
	if err != nil {
		t.Fatal(err)
	}
	pairs := []struct {
		name     string
		wrote    *Threshold
		readback *Threshold
	}{
		{"alert low", &cfg.AlertThresholds.Low, &readback.AlertThresholds.Low},
		{"alert high", &cfg.AlertThresholds.High, &readback.AlertThresholds.High},
		{"clear low", &cfg.ClearThresholds.Low, &readback.ClearThresholds.Low},
		{"clear high", &cfg.ClearThresholds.High, &readback.ClearThresholds.High},
	}
	for _, pair := range pairs {
		if !pair.readback.ApproxEqual(pair.wrote) {
			t.Errorf("%s threshold readback %s, wrote %s", pair.name, pair.readback, pair.wrote)
		}
	}
}

func TestThresholdWords(t *testing.T) {
	var tests = []struct {
		th   Threshold
		word uint16
	}{
		{Threshold{physic.ZeroCelsius - 10*physic.Celsius, 21 * physic.PercentRH}, 0x3466},
		{Threshold{physic.ZeroCelsius + 60*physic.Celsius, 80 * physic.PercentRH}, 0xcd33},
		{Threshold{physic.ZeroCelsius - 9*physic.Celsius, 22 * physic.PercentRH}, 0x3869},
		{Threshold{physic.ZeroCelsius + 58*physic.Celsius, 785 * physic.PercentRH / 10}, 0xc92d},
	}
	for _, test := range tests {
		if word := thresholdToWord(test.th); word != test.word {
			t.Errorf("thresholdToWord(%s)=0x%04x expected 0x%04x", test.th, word, test.word)
		}
		// The decoded value loses the truncated low bits but must stay within
		// one encoded LSB of the original.
		decoded := wordToThreshold(test.word)
		if !decoded.ApproxEqual(&test.th) {
			t.Errorf("wordToThreshold(0x%04x)=%s is not close to %s", test.word, decoded, test.th)
		}
	}
}

func TestOffsetBytes(t *testing.T) {
	if b := temperatureOffsetByte(9912 * physic.MilliKelvin); b != 0xba {
		t.Errorf("temperatureOffsetByte(9.912C)=0x%02x expected 0xba", b)
	}
	if b := humidityOffsetByte(-48830 * physic.MicroRH); b != 0x19 {
		t.Errorf("humidityOffsetByte(-4.883%%)=0x%02x expected 0x19", b)
	}
	if b := temperatureOffsetByte(0); b != 0x80 {
		t.Errorf("temperatureOffsetByte(0)=0x%02x expected 0x80", b)
	}
	if b := humidityOffsetByte(0); b != 0x80 {
		t.Errorf("humidityOffsetByte(0)=0x%02x expected 0x80", b)
	}
	// The magnitude saturates at 7 bits.
	if b := temperatureOffsetByte(100 * physic.Celsius); b != 0xff {
		t.Errorf("temperatureOffsetByte(100C)=0x%02x expected 0xff", b)
	}
	if b := humidityOffsetByte(-90 * physic.PercentRH); b != 0x7f {
		t.Errorf("humidityOffsetByte(-90%%)=0x%02x expected 0x7f", b)
	}

	offT := byteToTemperatureOffset(0xba)
	if diff := float64(offT)/float64(physic.Celsius) - 9.912109375; diff != 0 {
		t.Errorf("byteToTemperatureOffset(0xba)=%s", offT)
	}
	offH := byteToHumidityOffset(0x19)
	if diff := humidityToFloat(offH) + 4.8828125; diff > 0.001 || diff < -0.001 {
		t.Errorf("byteToHumidityOffset(0x19)=%s", offH)
	}
	if off := byteToTemperatureOffset(0x80); off != 0 {
		t.Errorf("byteToTemperatureOffset(0x80)=%s expected 0", off)
	}
}

func TestHeater(t *testing.T) {
	dev := getDev(t, []i2ctest.IO{
		opStart,
		{Addr: testAddr, W: []byte{0x30, 0x6e, 0x3f, 0xff, 0x06}},
		{Addr: testAddr, W: []byte{0x30, 0x6d}},
		{Addr: testAddr, W: []byte{0x30, 0x66}},
	})
	defer shutdown(t)

	if err := dev.SetHeater(HeaterPower(0x1234)); err == nil {
		t.Error("expected error for invalid heater power")
	}
	if err := dev.SetHeater(PowerFull); err != nil {
		t.Error(err)
	}
	if err := dev.SetHeater(PowerOff); err != nil {
		t.Error(err)
	}
}

func TestStatus(t *testing.T) {
	dev := getDev(t, []i2ctest.IO{
		opStart,
		{Addr: testAddr, W: []byte{0xf3, 0x2d}, R: []byte{0x89, 0x00, 0x61}},
		{Addr: testAddr, W: []byte{0x30, 0x41}},
		{Addr: testAddr, W: []byte{0xf3, 0x2d}, R: []byte{0x00, 0x00, 0x81}},
	})
	defer shutdown(t)

	status, err := dev.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	if !liveDevice {
		// 0x8900: active alerts, RH tracking, RH low tracking.
		if status != StatusActiveAlerts|StatusRHTrackingAlert|StatusRHLowTrackingAlert {
			t.Errorf("unexpected status 0x%04x", uint16(status))
		}
		if !status.LowAlertActive() {
			t.Error("expected LowAlertActive")
		}
		if status.HighAlertActive() {
			t.Error("unexpected HighAlertActive")
		}
		if status.HeaterOn() {
			t.Error("unexpected HeaterOn")
		}
	}
	if err := dev.ClearStatus(); err != nil {
		t.Fatal(err)
	}
	status, err = dev.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	if !liveDevice && status != 0 {
		t.Errorf("status after clear 0x%04x", uint16(status))
	}

	if !StatusWord(0x2000).HeaterOn() {
		t.Error("expected HeaterOn for the heater bit")
	}
}
