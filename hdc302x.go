// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hdc302x provides a driver for the Texas Instruments HDC3020,
// HDC3021 and HDC3022 I2C temperature/humidity sensors. These are high
// accuracy sensors with very good resolution.
//
// The device normally runs in auto measurement mode, acquiring samples at a
// configurable rate, and Sense returns the most recent acquisition. For very
// low duty-cycle applications the auto mode can be halted and single
// conversions triggered with SenseOneShot.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/hdc3022.pdf
package hdc302x

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/hdc302x/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddr is the device's I2C bus address with both address pins
// grounded. Alternate wirings yield 0x45..0x47.
const DefaultAddr i2c.Addr = 0x44

// Opts holds the configuration for the device.
type Opts struct {
	// Addr is the device's I2C address.
	Addr i2c.Addr
	// Rate is the sample rate used in auto measurement mode.
	Rate SampleRate
	// Power is the low power setting used for conversions.
	Power PowerMode
}

// DefaultOpts matches a device at the default address sampling once per
// second at the highest accuracy setting.
var DefaultOpts = Opts{Addr: DefaultAddr, Rate: RateHertz, Power: LowPower0}

// Dev represents an HDC302x sensor.
type Dev struct {
	d        *i2c.Dev
	mu       sync.Mutex
	shutdown chan struct{}
	rate     SampleRate
	power    PowerMode
	halted   bool
}

var errInvalidCRC = errors.New("hdc302x: invalid crc")

const (
	// Constants for count to value conversions.
	tempScale  float64 = 175.0
	tempOffset float64 = -45.0
	humScale   float64 = 100.0
	countRange float64 = 65535.0

	// Worst case one-shot conversion time. The LP0 conversion is the
	// slowest; reading back earlier returns a bus error.
	oneShotWait = 15 * time.Millisecond
)

// New returns a driver for an HDC302x sensor on the supplied bus and enters
// auto measurement mode. It blocks for one sample period: reading the device
// before the first conversion completes causes a remote I/O error.
func New(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rate < RateHalfHertz || opts.Rate > Rate10Hertz {
		return nil, fmt.Errorf("hdc302x: invalid sample rate %d", opts.Rate)
	}
	if opts.Power < LowPower0 || opts.Power > LowPower3 {
		return nil, fmt.Errorf("hdc302x: invalid power mode %d", opts.Power)
	}
	dev := &Dev{
		d:     &i2c.Dev{Bus: b, Addr: uint16(opts.Addr)},
		rate:  opts.Rate,
		power: opts.Power,
	}
	return dev, dev.startAuto()
}

// All device exchanges go through sendCommand. Each arg word is framed with
// its CRC after the command word, and each response word has its CRC
// verified before use.
func (dev *Dev) sendCommand(cmd command, args ...uint16) ([]uint16, error) {
	w := make([]byte, 2, 2+3*len(args))
	w[0] = byte(cmd.word >> 8)
	w[1] = byte(cmd.word)
	for _, arg := range args {
		w = common.AppendWord(w, arg)
	}
	var r []byte
	if cmd.read > 0 {
		r = make([]byte, 3*cmd.read)
	}
	if err := dev.d.Tx(w, r); err != nil {
		return nil, fmt.Errorf("hdc302x: cmd 0x%04x: %w", cmd.word, err)
	}
	if cmd.read == 0 {
		return nil, nil
	}
	words := make([]uint16, cmd.read)
	for ix := range words {
		word, err := common.Word(r[ix*3 : ix*3+3])
		if err != nil {
			return nil, errInvalidCRC
		}
		words[ix] = word
	}
	return words, nil
}

// startAuto enters auto measurement mode and waits out the first conversion.
func (dev *Dev) startAuto() error {
	if _, err := dev.sendCommand(autoModeCommands[dev.rate][dev.power]); err != nil {
		return err
	}
	time.Sleep(samplePeriods[dev.rate])
	dev.halted = false
	return nil
}

// countToTemperature converts a raw device count to a temperature.
func countToTemperature(count uint16) physic.Temperature {
	f := float64(count)/countRange*tempScale + tempOffset
	return physic.ZeroCelsius + physic.Temperature(f*float64(physic.Celsius))
}

// countToHumidity converts a raw device count to a relative humidity.
func countToHumidity(count uint16) physic.RelativeHumidity {
	f := float64(count) / countRange * humScale
	return physic.RelativeHumidity(f * float64(physic.PercentRH))
}

// temperatureToCount is the inverse conversion, saturating at the ends of
// the raw range.
func temperatureToCount(t physic.Temperature) uint16 {
	f := (t.Celsius() - tempOffset) / tempScale * countRange
	if f < 0 {
		f = 0
	} else if f > countRange {
		f = countRange
	}
	return uint16(f)
}

func humidityToCount(h physic.RelativeHumidity) uint16 {
	f := humidityToFloat(h) / humScale * countRange
	if f < 0 {
		f = 0
	} else if f > countRange {
		f = countRange
	}
	return uint16(f)
}

func humidityToFloat(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}

// Sense reads temperature and humidity from the device and writes the values
// to env. If auto measurement mode was halted, it is restarted, which blocks
// for one sample period. Implements physic.SenseEnv.
func (dev *Dev) Sense(env *physic.Env) error {
	env.Temperature = 0
	env.Pressure = 0
	env.Humidity = 0
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.halted {
		if err := dev.startAuto(); err != nil {
			return err
		}
	}
	words, err := dev.sendCommand(cmdReadAuto)
	if err != nil {
		return err
	}
	env.Temperature = countToTemperature(words[0])
	env.Humidity = countToHumidity(words[1])
	return nil
}

// SenseOneShot triggers a single on-demand conversion at the configured
// power mode and writes the result to env. One-shot conversions are only
// accepted while auto measurement mode is stopped; call Halt first.
func (dev *Dev) SenseOneShot(env *physic.Env) error {
	env.Temperature = 0
	env.Pressure = 0
	env.Humidity = 0
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.halted {
		return errors.New("hdc302x: SenseOneShot requires auto measurement mode stopped, call Halt first")
	}
	if _, err := dev.sendCommand(oneShotCommands[dev.power]); err != nil {
		return err
	}
	time.Sleep(oneShotWait)
	r := make([]byte, 6)
	if err := dev.d.Tx(nil, r); err != nil {
		return fmt.Errorf("hdc302x: one-shot read: %w", err)
	}
	tWord, err := common.Word(r[:3])
	if err != nil {
		return errInvalidCRC
	}
	hWord, err := common.Word(r[3:])
	if err != nil {
		return errInvalidCRC
	}
	env.Temperature = countToTemperature(tWord)
	env.Humidity = countToHumidity(hWord)
	return nil
}

// SenseContinuous reads from the device on the specified interval and writes
// the values to the returned channel. To terminate it, call Halt, which also
// closes the channel. Implements physic.SenseEnv.
//
// If interval is less than the device sample period, an error is returned.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, errors.New("hdc302x: SenseContinuous already running")
	}
	if interval < samplePeriods[dev.rate] {
		return nil, errors.New("hdc302x: interval is shorter than the device sample period")
	}
	dev.shutdown = make(chan struct{})
	ch := make(chan physic.Env, 16)
	go func(ch chan<- physic.Env, shutdown <-chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				env := physic.Env{}
				if err := dev.Sense(&env); err == nil {
					ch <- env
				}
			}
		}
	}(ch, dev.shutdown)
	return ch, nil
}

// Precision returns the smallest change in readings the device can produce.
// Refer to the datasheet for information on limits and accuracy.
// Implements physic.SenseEnv.
func (dev *Dev) Precision(env *physic.Env) {
	env.Temperature = physic.Temperature(math.Round(tempScale / countRange * float64(physic.Celsius)))
	env.Humidity = physic.RelativeHumidity(math.Round(humScale / countRange * float64(physic.PercentRH)))
	env.Pressure = 0
}

// Halt terminates a SenseContinuous operation if one is running and exits
// auto measurement mode. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	if dev.halted {
		return nil
	}
	dev.halted = true
	_, err := dev.sendCommand(cmdExitAuto)
	return err
}

// Reset performs a soft reset of the device and waits for it to settle. The
// reset leaves the device idle; the next Sense restarts auto measurement
// mode.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	_, err := dev.sendCommand(cmdReset)
	time.Sleep(time.Second)
	dev.halted = true
	return err
}

func (dev *Dev) String() string {
	return fmt.Sprintf("hdc302x: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
