// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// hdc302xmon reads an HDC302x temperature/humidity sensor continuously,
// writing readings to the terminal as a colored strip chart. It can export
// the readings to Prometheus and render a PNG chart on exit.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/GermanBionicSystems/hdc302x"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	temperatureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hdc302x_temperature_celsius",
		Help: "Most recent temperature reading.",
	})
	humidityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hdc302x_relative_humidity_percent",
		Help: "Most recent relative humidity reading.",
	})
	sampleCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hdc302x_samples_total",
		Help: "Number of samples read from the device.",
	})
)

type sample struct {
	when        time.Time
	temperature float64
	humidity    float64
}

// parseRate maps a sample frequency in Hz to the device setting.
func parseRate(hz float64) (hdc302x.SampleRate, error) {
	switch hz {
	case 0.5:
		return hdc302x.RateHalfHertz, nil
	case 1:
		return hdc302x.RateHertz, nil
	case 2:
		return hdc302x.RateTwoHertz, nil
	case 4:
		return hdc302x.RateFourHertz, nil
	case 10:
		return hdc302x.Rate10Hertz, nil
	}
	return 0, fmt.Errorf("unsupported sample rate %gHz, use 0.5, 1, 2, 4 or 10", hz)
}

// loadFace returns the chart font face. An empty path selects the builtin
// fixed size face.
func loadFace(path string) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: 12}), nil
}

// tempColor maps a temperature to a blue (cold) to red (hot) gradient over
// the 0..40C indoor range.
func tempColor(celsius float64) color.NRGBA {
	f := celsius / 40.0
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return color.NRGBA{R: byte(255 * f), B: byte(255 * (1 - f)), A: 255}
}

// renderChart writes a PNG with a temperature and a humidity trace.
func renderChart(samples []sample, face font.Face, path string) error {
	const w, h = 800, 400
	const margin = 40.0

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(face)

	if len(samples) < 2 {
		return fmt.Errorf("not enough samples to chart")
	}
	tMin, tMax := samples[0].temperature, samples[0].temperature
	for _, s := range samples {
		if s.temperature < tMin {
			tMin = s.temperature
		}
		if s.temperature > tMax {
			tMax = s.temperature
		}
	}
	if tMax-tMin < 1 {
		tMax = tMin + 1
	}

	x := func(ix int) float64 {
		return margin + float64(ix)/float64(len(samples)-1)*(w-2*margin)
	}
	yTemp := func(v float64) float64 {
		return h - margin - (v-tMin)/(tMax-tMin)*(h-2*margin)
	}
	yHum := func(v float64) float64 {
		return h - margin - v/100.0*(h-2*margin)
	}

	dc.SetLineWidth(2)
	dc.SetRGB(0.8, 0.2, 0.2)
	for ix := 1; ix < len(samples); ix++ {
		dc.DrawLine(x(ix-1), yTemp(samples[ix-1].temperature), x(ix), yTemp(samples[ix].temperature))
	}
	dc.Stroke()

	dc.SetRGB(0.2, 0.2, 0.8)
	for ix := 1; ix < len(samples); ix++ {
		dc.DrawLine(x(ix-1), yHum(samples[ix-1].humidity), x(ix), yHum(samples[ix].humidity))
	}
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	last := samples[len(samples)-1]
	dc.DrawString(fmt.Sprintf("temperature %.2fC (%.2f..%.2f)", last.temperature, tMin, tMax), margin, margin/2)
	dc.DrawString(fmt.Sprintf("humidity %.2f%%", last.humidity), margin, h-margin/2)
	dc.DrawString(last.when.Format(time.RFC3339), w-240, h-margin/2)

	return dc.SavePNG(path)
}

func main() {
	busName := flag.String("bus", "", "I2C bus name, empty for the first available")
	addr := flag.Uint("addr", uint(hdc302x.DefaultAddr), "I2C address of the device")
	rateHz := flag.Float64("rate", 1, "device sample rate in Hz (0.5, 1, 2, 4, 10)")
	lp := flag.Int("lp", 0, "low power mode (0=most accurate .. 3)")
	interval := flag.Duration("interval", time.Second, "time between readings")
	count := flag.Int("count", 0, "number of readings to take, 0 for unlimited")
	info := flag.Bool("info", false, "print the device configuration and exit")
	listen := flag.String("listen", "", "address to serve Prometheus metrics on, e.g. :9090")
	plot := flag.String("plot", "", "write a PNG chart of the collected readings to this file on exit")
	fontPath := flag.String("font", "", "TrueType font file for chart labels")
	flag.Parse()

	rate, err := parseRate(*rateHz)
	if err != nil {
		log.Fatal(err)
	}
	if *lp < int(hdc302x.LowPower0) || *lp > int(hdc302x.LowPower3) {
		log.Fatalf("invalid low power mode %d", *lp)
	}
	face, err := loadFace(*fontPath)
	if err != nil {
		log.Fatalf("loading font: %v", err)
	}

	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := hdc302x.New(bus, &hdc302x.Opts{
		Addr:  i2c.Addr(*addr),
		Rate:  rate,
		Power: hdc302x.PowerMode(*lp),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()

	if *info {
		cfg, err := dev.Configuration()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(dev, cfg)
		return
	}

	if *listen != "" {
		prometheus.MustRegister(temperatureGauge)
		prometheus.MustRegister(humidityGauge)
		prometheus.MustRegister(sampleCounter)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Fatal(http.ListenAndServe(*listen, nil))
		}()
	}

	ch, err := dev.SenseContinuous(*interval)
	if err != nil {
		log.Fatal(err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	stdout := colorable.NewColorableStdout()
	var samples []sample

loop:
	for {
		select {
		case <-interrupt:
			break loop
		case env, ok := <-ch:
			if !ok {
				break loop
			}
			s := sample{
				when:        time.Now(),
				temperature: env.Temperature.Celsius(),
				humidity:    float64(env.Humidity) / float64(physic.PercentRH),
			}
			samples = append(samples, s)
			temperatureGauge.Set(s.temperature)
			humidityGauge.Set(s.humidity)
			sampleCounter.Inc()
			block := ansi256.Default.Block(tempColor(s.temperature))
			fmt.Fprintf(stdout, "%s\033[0m %s %8s %9s\n",
				block, s.when.Format("15:04:05"), env.Temperature, env.Humidity)
			if *count > 0 && len(samples) >= *count {
				break loop
			}
		}
	}
	if err := dev.Halt(); err != nil {
		log.Print(err)
	}

	if *plot != "" {
		if err := renderChart(samples, face, *plot); err != nil {
			log.Fatalf("writing chart: %v", err)
		}
		log.Printf("wrote %d samples to %s", len(samples), *plot)
	}
}
