//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads PIR lines from a gpiochip.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewRealReader requests offsets as inputs on chipName.
func NewRealReader(chipName string, offsets []int, activeLow bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("triggerd"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if activeLow {
		opts = []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.AsActiveLow, gpiocdev.WithPullUp}
	}

	r := &RealReader{chip: chip, lines: make(map[int]*gpiocdev.Line, len(offsets))}
	for _, offset := range offsets {
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request pin %d: %w", offset, err)
		}
		r.lines[offset] = line
	}

	return r, nil
}

// Read returns the logical level of every line.
func (r *RealReader) Read() (map[int]bool, error) {
	levels := make(map[int]bool, len(r.lines))
	for offset, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return nil, fmt.Errorf("read pin %d: %w", offset, err)
		}
		levels[offset] = v == 1
	}
	return levels, nil
}

// Close reconfigures lines to pulled-down inputs and releases them.
func (r *RealReader) Close() error {
	var errs []error

	for offset, line := range r.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", offset, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", offset, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
