// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hdc302x

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// StatusWord is the device's 16 bit status register. The tracking alert bits
// are sticky; use ClearStatus to reset them.
type StatusWord uint16

const (
	StatusActiveAlerts  StatusWord = 1 << 15
	StatusHeaterEnabled StatusWord = 1 << 13
	// Mirrored on the alert pin.
	StatusRHTrackingAlert StatusWord = 1 << 11
	// Also reflected on the alert pin.
	StatusTempTrackingAlert     StatusWord = 1 << 10
	StatusRHHighTrackingAlert   StatusWord = 1 << 9
	StatusRHLowTrackingAlert    StatusWord = 1 << 8
	StatusTempHighTrackingAlert StatusWord = 1 << 7
	StatusTempLowTrackingAlert  StatusWord = 1 << 6
	StatusDeviceReset           StatusWord = 1 << 4
	// Set if there was a CRC error on the last write command.
	StatusLastWriteCRCFailure StatusWord = 1 << 0
)

// HighAlertActive reports whether either measurement has crossed its high
// alert threshold.
func (s StatusWord) HighAlertActive() bool {
	return s&(StatusRHHighTrackingAlert|StatusTempHighTrackingAlert) != 0
}

// LowAlertActive reports whether either measurement has crossed its low
// alert threshold.
func (s StatusWord) LowAlertActive() bool {
	return s&(StatusRHLowTrackingAlert|StatusTempLowTrackingAlert) != 0
}

// HeaterOn reports whether the integrated heater element is running.
func (s StatusWord) HeaterOn() bool {
	return s&StatusHeaterEnabled != 0
}

// HeaterPower is a power setting for the integrated heater element.
type HeaterPower uint16

const (
	PowerOff     HeaterPower = 0
	PowerQuarter HeaterPower = 0x009f
	PowerHalf    HeaterPower = 0x03ff
	PowerFull    HeaterPower = 0x3fff
)

// Threshold is a temperature/humidity value pair defining one alert limit.
// The alert hardware works on pairs of values: an alert triggers when either
// measurement crosses its limit.
type Threshold struct {
	Temperature physic.Temperature
	Humidity    physic.RelativeHumidity
}

// ThresholdPair is the low and high limit for either triggering or clearing
// alerts.
type ThresholdPair struct {
	Low  Threshold
	High Threshold
}

// Configuration provides information about the running device's config.
type Configuration struct {
	// Device unique NIST traceable ID. Read-only.
	SerialNumber uint64
	// Numeric manufacturer ID, 0x3000 for Texas Instruments. Read-only.
	ManufacturerID uint16
	// Status word. Refer to the Status* constants and the datasheet.
	// Read-only.
	Status StatusWord
	// The auto measurement mode sample rate. Read-only.
	SampleRate SampleRate
	// Offset added to the humidity result. The device stores offsets with
	// limited resolution, so a written value reads back at the nearest
	// representable step (~0.2%RH).
	HumidityOffset physic.RelativeHumidity
	// Offset added to the temperature result, stored in ~0.17 degree C
	// steps. Per the datasheet it does not feed into the RH calculation.
	TemperatureOffset physic.Temperature

	// Limits for triggering alerts. As with the offsets, written values are
	// truncated to the device's resolution.
	AlertThresholds ThresholdPair
	// Limits for clearing alerts.
	ClearThresholds ThresholdPair
}

const (
	// Offset register LSB weights.
	tempOffsetLSB = tempScale / 1024.0 // degrees C per count
	humOffsetLSB  = humScale / 512.0   // %RH per count
)

// thresholdToWord packs the 7 MSBs of the humidity count and the 9 MSBs of
// the temperature count into a single transfer word.
func thresholdToWord(th Threshold) uint16 {
	rawT := temperatureToCount(th.Temperature)
	rawH := humidityToCount(th.Humidity)
	return rawH&0xfe00 | rawT>>7
}

// wordToThreshold restores the truncated counts to their original bit
// positions and converts them.
func wordToThreshold(w uint16) Threshold {
	return Threshold{
		Temperature: countToTemperature(w << 7),
		Humidity:    countToHumidity(w & 0xfe00),
	}
}

// offsetByte encodes an offset expressed in register LSBs into the device's
// sign/magnitude format. The sign bit is set for positive offsets.
func offsetByte(value float64) byte {
	b := byte(0x80)
	if value < 0 {
		b = 0
		value = -value
	}
	n := int(math.Round(value))
	if n > 0x7f {
		n = 0x7f
	}
	return b | byte(n)
}

func temperatureOffsetByte(t physic.Temperature) byte {
	return offsetByte(float64(t) / float64(physic.Celsius) / tempOffsetLSB)
}

func humidityOffsetByte(h physic.RelativeHumidity) byte {
	return offsetByte(humidityToFloat(h) / humOffsetLSB)
}

func byteToTemperatureOffset(b byte) physic.Temperature {
	v := float64(b&0x7f) * tempOffsetLSB
	if b&0x80 == 0 {
		v = -v
	}
	return physic.Temperature(v * float64(physic.Celsius))
}

func byteToHumidityOffset(b byte) physic.RelativeHumidity {
	v := float64(b&0x7f) * humOffsetLSB
	if b&0x80 == 0 {
		v = -v
	}
	return physic.RelativeHumidity(v * float64(physic.PercentRH))
}

// SerialNumber returns the device's unique NIST traceable serial number.
func (dev *Dev) SerialNumber() (uint64, error) {
	var sn uint64
	for _, cmd := range cmdSerial {
		words, err := dev.sendCommand(cmd)
		if err != nil {
			return 0, err
		}
		sn = sn<<16 | uint64(words[0])
	}
	return sn, nil
}

// ManufacturerID returns the vendor identification word, 0x3000 for Texas
// Instruments parts.
func (dev *Dev) ManufacturerID() (uint16, error) {
	words, err := dev.sendCommand(cmdManufacturer)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// ReadStatus returns the device's status word. Reading does not clear the
// sticky bits; use ClearStatus for that.
func (dev *Dev) ReadStatus() (StatusWord, error) {
	words, err := dev.sendCommand(cmdReadStatus)
	if err != nil {
		return 0, err
	}
	return StatusWord(words[0]), nil
}

// ClearStatus resets the sticky bits of the status word.
func (dev *Dev) ClearStatus() error {
	_, err := dev.sendCommand(cmdClearStatus)
	return err
}

// SetHeater programs and enables the integrated heater element at the given
// power level, or disables it with PowerOff. The heater is used to drive
// condensation off the sensing element; refer to the datasheet for usage in
// condensing environments.
func (dev *Dev) SetHeater(power HeaterPower) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	switch power {
	case PowerOff:
		_, err := dev.sendCommand(cmdHeaterDisable)
		return err
	case PowerQuarter, PowerHalf, PowerFull:
	default:
		return fmt.Errorf("hdc302x: invalid heater power 0x%04x", uint16(power))
	}
	if _, err := dev.sendCommand(cmdHeaterPower, uint16(power)); err != nil {
		return err
	}
	_, err := dev.sendCommand(cmdHeaterEnable)
	return err
}

// readOffsets fills in the offset values stored on the device. The transfer
// word carries the RH offset in the high byte and the temperature offset in
// the low byte.
func (dev *Dev) readOffsets(cfg *Configuration) error {
	words, err := dev.sendCommand(cmdReadOffsets)
	if err != nil {
		return err
	}
	cfg.HumidityOffset = byteToHumidityOffset(byte(words[0] >> 8))
	cfg.TemperatureOffset = byteToTemperatureOffset(byte(words[0]))
	return nil
}

func (dev *Dev) readThresholds(cfg *Configuration) error {
	pairs := [2]*ThresholdPair{&cfg.AlertThresholds, &cfg.ClearThresholds}
	for set := range cmdReadThreshold {
		for level := range cmdReadThreshold[set] {
			words, err := dev.sendCommand(cmdReadThreshold[set][level])
			if err != nil {
				return err
			}
			th := wordToThreshold(words[0])
			if level == 0 {
				pairs[set].Low = th
			} else {
				pairs[set].High = th
			}
		}
	}
	return nil
}

func (dev *Dev) writeThresholds(set int, tp *ThresholdPair) error {
	for level, th := range [2]Threshold{tp.Low, tp.High} {
		if _, err := dev.sendCommand(cmdSetThreshold[set][level], thresholdToWord(th)); err != nil {
			return err
		}
	}
	return nil
}

// Configuration returns the device's running configuration: identification,
// status, offsets and the alert/clear threshold pairs.
func (dev *Dev) Configuration() (*Configuration, error) {
	cfg := &Configuration{SampleRate: dev.rate}
	var err error
	if cfg.SerialNumber, err = dev.SerialNumber(); err != nil {
		return cfg, err
	}
	if cfg.ManufacturerID, err = dev.ManufacturerID(); err != nil {
		return cfg, err
	}
	if err = dev.readOffsets(cfg); err != nil {
		return cfg, err
	}
	if cfg.Status, err = dev.ReadStatus(); err != nil {
		return cfg, err
	}
	err = dev.readThresholds(cfg)
	return cfg, err
}

// SetConfiguration applies the writable parts of cfg: the offsets and the
// alert and clear threshold pairs. Only values that differ from the running
// configuration are written. Auto measurement mode is halted for the
// duration; the next Sense restarts it.
func (dev *Dev) SetConfiguration(cfg *Configuration) error {
	_ = dev.Halt()
	dev.mu.Lock()
	defer dev.mu.Unlock()
	current, err := dev.Configuration()
	if err != nil {
		return err
	}
	if current.TemperatureOffset != cfg.TemperatureOffset ||
		current.HumidityOffset != cfg.HumidityOffset {
		word := uint16(humidityOffsetByte(cfg.HumidityOffset))<<8 |
			uint16(temperatureOffsetByte(cfg.TemperatureOffset))
		if _, err := dev.sendCommand(cmdWriteOffsets, word); err != nil {
			return err
		}
	}
	if !current.AlertThresholds.Equal(&cfg.AlertThresholds) {
		if err := dev.writeThresholds(alertSet, &cfg.AlertThresholds); err != nil {
			return err
		}
	}
	if !current.ClearThresholds.Equal(&cfg.ClearThresholds) {
		if err := dev.writeThresholds(clearSet, &cfg.ClearThresholds); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports exact equality of both values.
func (th *Threshold) Equal(other *Threshold) bool {
	return th.Temperature == other.Temperature && th.Humidity == other.Humidity
}

// ApproxEqual reports whether two thresholds agree to within one encoded
// LSB. Only the top 9 temperature bits and the top 7 humidity bits survive a
// write, so a value read back can differ from the one written.
func (th *Threshold) ApproxEqual(other *Threshold) bool {
	tLSB := float64(1<<7) / countRange * tempScale
	hLSB := float64(1<<9) / countRange * humScale
	return math.Abs(th.Temperature.Celsius()-other.Temperature.Celsius()) < tLSB &&
		math.Abs(humidityToFloat(th.Humidity)-humidityToFloat(other.Humidity)) < hLSB
}

func (tp *ThresholdPair) Equal(other *ThresholdPair) bool {
	return tp.Low.Equal(&other.Low) && tp.High.Equal(&other.High)
}

func (th Threshold) String() string {
	return fmt.Sprintf("{Temperature: %s, Humidity: %s}", th.Temperature, th.Humidity)
}

func (tp ThresholdPair) String() string {
	return fmt.Sprintf("{Low: %s, High: %s}", tp.Low, tp.High)
}

func (cfg *Configuration) String() string {
	return fmt.Sprintf(`{
	SerialNumber: 0x%x,
	ManufacturerID: 0x%x,
	Status: 0x%x,
	SampleRate: %d,
	HumidityOffset: %s,
	TemperatureOffset: %s,
	AlertThresholds: %s,
	ClearThresholds: %s
	}`,
		cfg.SerialNumber,
		cfg.ManufacturerID,
		cfg.Status,
		cfg.SampleRate,
		cfg.HumidityOffset,
		cfg.TemperatureOffset,
		cfg.AlertThresholds,
		cfg.ClearThresholds)
}
