// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"fmt"
	"image"
	"log"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_dashboard/internal/present"
)

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13
)

// Panel is the part of *ssd1306.Dev the OLED sink draws through.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// OLED renders a compact text view on a 128x64 SSD1306 panel.
type OLED struct {
	panel Panel
	bus   i2c.BusCloser
}

// OpenOLED initializes periph, opens the I2C bus and the display on it, and
// shows the splash screen.
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on bus %s", bus)

	o := &OLED{panel: dev, bus: bus}
	if err := o.draw([]string{"", "IMU Dashboard", "Waiting..."}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}
	return o, nil
}

// NewOLED draws onto an already opened panel.
func NewOLED(p Panel) *OLED {
	return &OLED{panel: p}
}

// Close releases the bus when the sink opened it.
func (o *OLED) Close() error {
	if o.bus == nil {
		return nil
	}
	return o.bus.Close()
}

func (o *OLED) Render(f present.Frame) error {
	return o.draw(oledLines(f))
}

func oledLines(f present.Frame) []string {
	lines := []string{f.Status.Text}
	if !f.HasReading {
		return append(lines, "Waiting...")
	}
	text := make(map[string]string, len(f.Gauges))
	for _, g := range f.Gauges {
		text[g.Key] = g.Text
	}
	lines = append(lines,
		fmt.Sprintf("X:%s Y:%s", text["acc_x"], text["acc_y"]),
		fmt.Sprintf("Z:%s", text["acc_z"]),
	)
	if f.Temperature != "" {
		lines[len(lines)-1] += " T:" + f.Temperature
	}
	if f.Roll != "" {
		// basicfont has no degree glyph
		lines = append(lines, fmt.Sprintf("R:%s P:%s",
			strings.TrimSuffix(f.Roll, "°"), strings.TrimSuffix(f.Pitch, "°")))
	}
	return lines
}

func (o *OLED) draw(lines []string) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := (i + 1) * lineHeight
		if y > oledHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return o.panel.Draw(o.panel.Bounds(), img, image.Point{})
}
