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
	"fmt"

	"github.com/Fantom-foundation/Warp/common"
)

const (
	// ErrSnapshotAborted is returned when snapshot production got cancelled.
	ErrSnapshotAborted = common.ConstError("snapshot aborted")
	// ErrRestorationAborted is returned when a restoration got cancelled.
	ErrRestorationAborted = common.ConstError("restoration aborted")
	// ErrUnrecognizedCodeState is returned for entries with an unknown code tag.
	ErrUnrecognizedCodeState = common.ConstError("unrecognized code state")
	// ErrIncorrectListLen is returned for records with an unexpected number of fields.
	ErrIncorrectListLen = common.ConstError("incorrect list length")
	// ErrChunkTooSmall is returned if a single storage slot does not fit into a chunk.
	ErrChunkTooSmall = common.ConstError("chunk size too small to hold a storage entry")
	// ErrChunkTooLarge is returned for chunks exceeding the maximum chunk size.
	ErrChunkTooLarge = common.ConstError("chunk exceeds maximum size")
	// ErrChunkHashMismatch is returned if a chunk's content does not match its hash.
	ErrChunkHashMismatch = common.ConstError("chunk does not match its hash")
	// ErrManifestVersion is returned for manifests of an unsupported version.
	ErrManifestVersion = common.ConstError("unsupported manifest version")
	// ErrRestorationIncomplete is returned when finalizing a restoration still
	// missing chunks.
	ErrRestorationIncomplete = common.ConstError("restoration incomplete")
	// ErrMissingCode is matched by MissingCodeError.
	ErrMissingCode = common.ConstError("missing code")
	// ErrInvalidStateRoot is matched by StateRootError.
	ErrInvalidStateRoot = common.ConstError("invalid state root")
)

// MissingCodeError lists codes referenced by hash in a restored state whose
// content was never received.
type MissingCodeError struct {
	Codes    []common.Hash
	Accounts []common.Hash
}

func (e *MissingCodeError) Error() string {
	return fmt.Sprintf("%v: %d codes referenced by %d accounts", ErrMissingCode, len(e.Codes), len(e.Accounts))
}

func (e *MissingCodeError) Is(target error) bool {
	return target == ErrMissingCode
}

// StateRootError reports a restored state not matching the expected root.
type StateRootError struct {
	Expected common.Hash
	Actual   common.Hash
}

func (e *StateRootError) Error() string {
	return fmt.Sprintf("%v: expected %v, got %v", ErrInvalidStateRoot, e.Expected, e.Actual)
}

func (e *StateRootError) Is(target error) bool {
	return target == ErrInvalidStateRoot
}
