// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package logging

import (
	"time"

	"go.uber.org/zap"
)

// ProgressLogger tracks the progress of a long running task and reports it
// every time a configured number of steps has been completed.
type ProgressLogger struct {
	log            *Logger
	start          time.Time
	begin          time.Time
	message        string
	window         int
	counter, steps int
}

// NewProgressLogger creates a progress logger reporting the given message
// after every window steps.
func (log *Logger) NewProgressLogger(message string, window int) *ProgressLogger {
	now := time.Now()
	return &ProgressLogger{log: log, start: now, begin: now, message: message, window: window}
}

// Step increments the progress counter by the given number of steps.
// If the counter reaches the window size, the progress is logged.
func (p *ProgressLogger) Step(increment int) {
	p.counter += increment
	p.steps += increment

	if p.steps >= p.window {
		now := time.Now()
		count := p.counter / p.window * p.window // round down to the nearest window size
		p.log.Info(p.message,
			zap.Int("count", count),
			zap.Float64("rate", float64(p.steps)/now.Sub(p.start).Seconds()),
			zap.Duration("elapsed", now.Sub(p.begin)),
		)
		p.steps = 0
		p.start = now
	}
}

// GetCounter returns the current value of the progress counter.
func (p *ProgressLogger) GetCounter() int {
	return p.counter
}
