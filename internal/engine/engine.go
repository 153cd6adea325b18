// SPDX-License-Identifier: MIT

/*
Package engine runs the display loop.

The loop spins at the render rate. Every pass advances the tick timer by the
wall time since the previous pass; on the passes where the timer fires, the
engine analyzes the sample history, advances the wheel and publishes the
frame to every scene.

Thread Safety:
  - Run owns the analyzer, timer and wheel; nothing else touches them.
  - The sample source and the settings store are shared with the capture
    callback and the settings writers. Each pass takes one copy of the
    settings and holds the source lock only while snapshotting.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"audiowheel/internal/analysis"
	"audiowheel/internal/log"
	"audiowheel/internal/schedule"
	"audiowheel/internal/settings"
	"audiowheel/internal/visualizer"
)

// DefaultRenderRate is the number of passes per second.
const DefaultRenderRate = 144

// Config paces the loop.
type Config struct {
	RenderRate float64       // passes per second, 0 uses DefaultRenderRate
	TickPeriod time.Duration // 0 uses schedule.DefaultPeriod
}

// Engine drives analysis, mapping and publishing.
type Engine struct {
	source   analysis.Source
	store    *settings.Store
	analyzer *analysis.Analyzer
	timer    *schedule.Timer
	wheel    visualizer.Wheel
	scenes   []visualizer.Scene

	renderInterval time.Duration
	now            func() time.Time

	passes   atomic.Uint64
	frames   atomic.Uint64
	skipped  atomic.Uint64
	lastWarn time.Time
}

// New builds an engine reading from source and publishing to scenes.
func New(cfg Config, source analysis.Source, store *settings.Store, scenes ...visualizer.Scene) (*Engine, error) {
	if source == nil || store == nil {
		return nil, errors.New("engine: source and settings store are required")
	}

	rate := cfg.RenderRate
	if rate <= 0 {
		rate = DefaultRenderRate
	}
	period := cfg.TickPeriod
	if period <= 0 {
		period = schedule.DefaultPeriod
	}

	analyzer, err := analysis.NewAnalyzer(source.Cap())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	timer, err := schedule.NewTimer(period)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		source:         source,
		store:          store,
		analyzer:       analyzer,
		timer:          timer,
		scenes:         scenes,
		renderInterval: time.Duration(float64(time.Second) / rate),
		now:            time.Now,
	}, nil
}

// AddScene registers another scene. It must be called before Run.
func (e *Engine) AddScene(scene visualizer.Scene) {
	e.scenes = append(e.scenes, scene)
}

// Run spins the loop until ctx is cancelled. It returns nil on cancellation
// and an error when analysis hits a configuration defect.
func (e *Engine) Run(ctx context.Context) error {
	current := e.store.Snapshot()
	e.restructure(settings.Restructure{ColumnCount: current.ColumnCount, ColumnWidth: current.ColumnWidth})

	log.Infof("Engine: running (render every %v, tick every %v, %d scenes)",
		e.renderInterval, e.timer.Period(), len(e.scenes))

	ticker := time.NewTicker(e.renderInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Infof("Engine: stopped after %d passes, %d frames", e.passes.Load(), e.frames.Load())
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if err := e.pass(delta); err != nil {
				return err
			}
		}
	}
}

// pass runs one iteration of the loop.
func (e *Engine) pass(delta time.Duration) error {
	e.passes.Add(1)

	select {
	case req := <-e.store.Restructure():
		e.restructure(req)
	default:
	}

	if !e.timer.Tick(delta) {
		return nil
	}

	s := e.store.Snapshot()
	spectrum, err := e.analyzer.Analyze(e.source, s.AnalysisConfig())
	switch {
	case errors.Is(err, analysis.ErrNotEnoughData):
		e.skipped.Add(1)
		log.Debugf("Engine: tick %d skipped, sample buffer still filling", e.timer.Fired())
		spectrum = nil
	case err != nil:
		return fmt.Errorf("engine: analyze: %w", err)
	}

	frame, ok := e.wheel.Tick(spectrum, &s)
	if !ok {
		return nil
	}
	frame.Timestamp = e.now()
	e.frames.Add(1)

	for _, scene := range e.scenes {
		if err := scene.Apply(frame); err != nil {
			e.warn("Engine: scene %T rejected frame %d: %v", scene, frame.Sequence, err)
		}
	}
	return nil
}

func (e *Engine) restructure(req settings.Restructure) {
	log.Debugf("Engine: restructure to %d columns of width %g", req.ColumnCount, req.ColumnWidth)
	for _, scene := range e.scenes {
		if err := scene.Restructure(req.ColumnCount, req.ColumnWidth); err != nil {
			e.warn("Engine: scene %T failed to restructure: %v", scene, err)
		}
	}
}

// warn rate-limits scene failures to one line per second.
func (e *Engine) warn(format string, args ...any) {
	now := e.now()
	if now.Sub(e.lastWarn) < time.Second {
		return
	}
	e.lastWarn = now
	log.Warnf(format, args...)
}

// Passes returns the number of loop passes so far.
func (e *Engine) Passes() uint64 { return e.passes.Load() }

// Frames returns the number of frames published so far.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

// Skipped returns the number of ticks skipped while the buffer filled.
func (e *Engine) Skipped() uint64 { return e.skipped.Load() }

// LatestAverage returns the spectrum average the wheel is easing toward.
// It must only be called from the goroutine running the loop or after Run
// returns.
func (e *Engine) LatestAverage() float64 { return e.wheel.LatestAverage() }
