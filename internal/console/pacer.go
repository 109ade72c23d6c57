package console

import (
	"context"
	"io"
	"time"
)

// DefaultCharDelay is the inter-character delay used by Metered when none is
// configured. Slow bootloaders and some UARTs drop input sent any faster.
const DefaultCharDelay = 30 * time.Millisecond

// Pacer decides how bytes reach the device.
type Pacer interface {
	Write(ctx context.Context, w io.Writer, p []byte) error
}

// Direct writes the whole buffer at once.
type Direct struct{}

func (Direct) Write(ctx context.Context, w io.Writer, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// Metered writes one byte at a time and waits Delay after each one, so a
// buffer of n bytes takes at least n*Delay.
type Metered struct {
	Delay time.Duration
}

func (m Metered) Write(ctx context.Context, w io.Writer, p []byte) error {
	delay := m.Delay
	if delay <= 0 {
		delay = DefaultCharDelay
	}

	for i := range p {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.Write(p[i : i+1]); err != nil {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
