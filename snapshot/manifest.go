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
	gethrlp "github.com/ethereum/go-ethereum/rlp"
)

// ManifestVersion is the version of manifests produced by this package.
const ManifestVersion = 2

// ManifestData describes a complete snapshot. The chunk hash lists define the
// chunks making up the snapshot, while the state root and block identity bind
// it to a specific point of the chain.
type ManifestData struct {
	Version     uint64
	StateHashes []common.Hash
	BlockHashes []common.Hash
	StateRoot   common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
}

// legacyManifest is the layout of version 1 manifests, lacking the version.
type legacyManifest struct {
	StateHashes []common.Hash
	BlockHashes []common.Hash
	StateRoot   common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
}

// Encode produces the RLP encoding of the manifest.
func (m *ManifestData) Encode() ([]byte, error) {
	return gethrlp.EncodeToBytes(m)
}

// Hash computes the hash identifying this manifest.
func (m *ManifestData) Hash() (common.Hash, error) {
	data, err := m.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return common.Keccak256(data), nil
}

// TotalChunks is the number of state and block chunks of the snapshot.
func (m *ManifestData) TotalChunks() int {
	return len(m.StateHashes) + len(m.BlockHashes)
}

// DecodeManifest parses a manifest. Manifests with five fields are version 1
// manifests without an explicit version.
func DecodeManifest(data []byte) (ManifestData, error) {
	content, _, err := gethrlp.SplitList(data)
	if err != nil {
		return ManifestData{}, err
	}
	fields, err := gethrlp.CountValues(content)
	if err != nil {
		return ManifestData{}, err
	}

	if fields == 5 {
		var legacy legacyManifest
		if err := gethrlp.DecodeBytes(data, &legacy); err != nil {
			return ManifestData{}, err
		}
		return ManifestData{
			Version:     1,
			StateHashes: legacy.StateHashes,
			BlockHashes: legacy.BlockHashes,
			StateRoot:   legacy.StateRoot,
			BlockNumber: legacy.BlockNumber,
			BlockHash:   legacy.BlockHash,
		}, nil
	}

	var res ManifestData
	if err := gethrlp.DecodeBytes(data, &res); err != nil {
		return ManifestData{}, err
	}
	if res.Version == 0 || res.Version > ManifestVersion {
		return ManifestData{}, fmt.Errorf("%w: %d", ErrManifestVersion, res.Version)
	}
	return res, nil
}
