// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package warpsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trackerValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "sync",
		Name:      "chunk_validations_total",
		Help:      "Number of downloaded chunks validated by outcome.",
	}, []string{"outcome"})
	chunksDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "sync",
		Name:      "chunks_downloaded_total",
		Help:      "Number of chunks received from peers.",
	})
	chunkRequestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warp",
		Subsystem: "sync",
		Name:      "chunk_request_failures_total",
		Help:      "Number of failed chunk requests by peer.",
	}, []string{"peer"})
)
