package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"time"
)

// Interpolator plays one leg as a stream of eased frames.
type Interpolator struct {
	minLeg        time.Duration
	maxLeg        time.Duration
	msPerMeter    float64
	frameInterval time.Duration
}

func NewInterpolator(opts Options) *Interpolator {
	opts = opts.withDefaults()
	return &Interpolator{
		minLeg:        opts.MinLegDuration,
		maxLeg:        opts.MaxLegDuration,
		msPerMeter:    opts.LegMillisPerMeter,
		frameInterval: opts.FrameInterval,
	}
}

// Duration is the wall time a leg of the given length is played over,
// proportional to distance and clamped to [min, max].
func (ip *Interpolator) Duration(meters float64) time.Duration {
	d := time.Duration(meters * ip.msPerMeter * float64(time.Millisecond))
	if d < ip.minLeg {
		return ip.minLeg
	}
	if d > ip.maxLeg {
		return ip.maxLeg
	}
	return d
}

// Run emits frames for leg until the final frame at leg.To has been sent.
// Progress is eased and mapped by arc position, so a path with unevenly
// spaced vertices still moves at a steady pace. It returns ctx.Err() if
// cancelled before the final frame; emit is never called after that.
func (ip *Interpolator) Run(ctx context.Context, leg domain.Leg, emit func(domain.Frame)) error {
	path := leg.Path
	if len(path) == 0 {
		path = domain.Path{leg.From, leg.To}
	}

	mp := geo.NewMeasuredPath(path)
	total := mp.Length()

	if total > 0 {
		dur := ip.Duration(total)
		start := time.Now()

		ticker := time.NewTicker(ip.frameInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			t := float64(time.Since(start)) / float64(dur)
			if t >= 1 {
				break
			}

			at := geo.EaseOutQuad(t) * total
			pos, prefix := mp.At(at)
			emit(domain.Frame{
				LegID:       leg.ID,
				Position:    pos,
				PartialPath: prefix,
				Heading:     mp.HeadingAt(at),
				IsAnimating: true,
				Status:      leg.Status,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	emit(domain.Frame{
		LegID:       leg.ID,
		Position:    leg.To,
		PartialPath: path.Clone(),
		Heading:     mp.HeadingAt(total),
		IsAnimating: false,
		Status:      leg.Status,
	})
	return nil
}
