// SPDX-License-Identifier: MIT

// Package udp publishes wheel frames as compact binary packets.
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"audiowheel/internal/log"
	"audiowheel/internal/visualizer"

	"github.com/lucasb-eyer/go-colorful"
)

// PacketSender is what the publisher writes packets to. *Sender satisfies it.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher keeps the latest frame handed to it by the tick loop and sends
// it over UDP at a fixed interval from its own goroutine. A frame is sent
// at most once; intervals without a new frame send nothing.
// It runs in a separate goroutine managed by Start and Stop methods.
type Publisher struct {
	sender   PacketSender  // The underlying UDP sender.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker, doneChan and the latest packet.

	latest   Packet // Latest frame, columns buffer reused.
	fresh    bool   // latest has not been sent yet.
	sent     uint64
	outgoing Packet        // Copy taken under mu for encoding.
	buffer   *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewPublisher creates and initializes a new Publisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender PacketSender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP publisher: sender cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		log.Warnf("UDP Publisher: invalid interval provided, defaulting to %s", interval)
	}

	log.Infof("UDP Publisher: initializing (Interval: %s)", interval)

	return &Publisher{
		sender:   sender,
		interval: interval,
		buffer:   new(bytes.Buffer),
	}, nil
}

// Apply records the frame as the next one to send.
func (p *Publisher) Apply(frame visualizer.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest.Sequence = uint32(frame.Sequence)
	p.latest.Timestamp = frame.Timestamp.UnixNano()
	p.latest.Rotation = float32(frame.Rotation)
	p.latest.NormalColor = rgb8(frame.NormalColor)
	p.latest.HighlightColor = rgb8(frame.HighlightColor)

	p.latest.Columns = p.latest.Columns[:0]
	for _, c := range frame.Columns {
		col := Column{Height: float32(c.Height)}
		if c.Highlighted {
			col.Highlighted = 1
		}
		p.latest.Columns = append(p.latest.Columns, col)
	}
	p.fresh = true
	return nil
}

// Restructure is a no-op: every packet carries its column count.
func (p *Publisher) Restructure(columnCount int, columnWidth float64) error {
	log.Debugf("UDP Publisher: layout now %d columns", columnCount)
	return nil
}

// Start begins the periodic publishing process.
// It launches a goroutine that ticks at the configured interval, calling
// buildAndSendPacket on each tick until Stop is called.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *Publisher) Start() {
	p.mu.Lock()
	// Prevent starting if already running
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDP Publisher: Start called but already running.")
		return
	}

	// Initialize resources for this run
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{} // Reset stopOnce for this run

	// Local copies keep the goroutine off p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("UDP Publisher: publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				log.Debugf("UDP Publisher: publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	// Check if already stopped or never started
	if p.ticker == nil {
		p.mu.Unlock()
		log.Debugf("UDP Publisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock() // Unlock before waiting

	p.wg.Wait()
	log.Infof("UDP Publisher: publisher goroutine finished after %d packets.", p.Sent())
	return nil
}

// Sent returns the number of packets sent successfully.
func (p *Publisher) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// buildAndSendPacket runs on every ticker interval: it copies the latest
// frame under the lock, encodes it and hands it to the sender.
func (p *Publisher) buildAndSendPacket() {
	p.mu.Lock()
	if !p.fresh {
		p.mu.Unlock()
		return
	}
	p.fresh = false
	cols := append(p.outgoing.Columns[:0], p.latest.Columns...)
	p.outgoing = p.latest
	p.outgoing.Columns = cols
	p.mu.Unlock()

	if err := p.outgoing.Encode(p.buffer); err != nil {
		log.Errorf("UDP Publisher: error packing frame %d: %v", p.outgoing.Sequence, err)
		return
	}

	if err := p.sender.Send(p.buffer.Bytes()); err != nil {
		return // Sender logs at debug level.
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()
	log.Debugf("UDP Publisher: sent frame %d (%d bytes)", p.outgoing.Sequence, p.buffer.Len())
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *Publisher) Close() error {
	return p.Stop()
}

func rgb8(c visualizer.RGB) [3]uint8 {
	r, g, b := colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().RGB255()
	return [3]uint8{r, g, b}
}

// Ensure Publisher satisfies the scene interface at compile time.
var _ visualizer.Scene = (*Publisher)(nil)
