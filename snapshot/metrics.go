// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chunksWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "snapshot",
		Name:      "chunks_written_total",
		Help:      "Number of state chunks produced.",
	})
	chunkBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "snapshot",
		Name:      "chunk_bytes_written_total",
		Help:      "Compressed size of all state chunks produced.",
	})
	accountsChunked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "snapshot",
		Name:      "accounts_total",
		Help:      "Number of accounts encoded into state chunks.",
	})
	chunksFed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "restore",
		Name:      "chunks_fed_total",
		Help:      "Number of chunks fed into restorations by kind.",
	}, []string{"kind"})
	feedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warp",
		Subsystem: "restore",
		Name:      "feed_duration_seconds",
		Help:      "Time spent rebuilding the state of a single chunk.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)
