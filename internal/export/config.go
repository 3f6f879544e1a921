package export

import (
	"time"
)

// Config holds the configuration of the image exporter.
type Config struct {
	// Width is the nominal card width in CSS pixels. The height follows the content.
	Width int
	// Scale is the oversampling factor; the PNG is Width*Scale pixels wide.
	// Values below MinScale are raised to MinScale.
	Scale float64
	// Timeout is the maximum amount of time one export can take.
	Timeout time.Duration
	// MaxConcurrent is the number of rendering surfaces, i.e. how many exports
	// can rasterize at the same time. Further exports wait for a free surface.
	MaxConcurrent int
	// MaxHeight caps the nominal card height; taller cards fail to export.
	MaxHeight int
}

// MinScale keeps exported text legible.
const MinScale = 2

// DefaultConfig matches the on-screen card: 400px wide at 2x.
func DefaultConfig() Config {
	return Config{
		Width:         400,
		Scale:         2,
		Timeout:       10 * time.Second,
		MaxConcurrent: 4,
		MaxHeight:     10000,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Scale < MinScale {
		c.Scale = MinScale
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = d.MaxHeight
	}
	return c
}
