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
	context "context"
	reflect "reflect"

	common "github.com/Fantom-foundation/Warp/common"
	snapshot "github.com/Fantom-foundation/Warp/snapshot"
	gomock "go.uber.org/mock/gomock"
)

// MockPeer is a mock of Peer interface.
type MockPeer struct {
	ctrl     *gomock.Controller
	recorder *MockPeerMockRecorder
}

// MockPeerMockRecorder is the mock recorder for MockPeer.
type MockPeerMockRecorder struct {
	mock *MockPeer
}

// NewMockPeer creates a new mock instance.
func NewMockPeer(ctrl *gomock.Controller) *MockPeer {
	mock := &MockPeer{ctrl: ctrl}
	mock.recorder = &MockPeerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPeer) EXPECT() *MockPeerMockRecorder {
	return m.recorder
}

// ID mocks base method.
func (m *MockPeer) ID() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ID")
	ret0, _ := ret[0].(string)
	return ret0
}

// ID indicates an expected call of ID.
func (mr *MockPeerMockRecorder) ID() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ID", reflect.TypeOf((*MockPeer)(nil).ID))
}

// RequestChunk mocks base method.
func (m *MockPeer) RequestChunk(ctx context.Context, hash common.Hash) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RequestChunk", ctx, hash)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RequestChunk indicates an expected call of RequestChunk.
func (mr *MockPeerMockRecorder) RequestChunk(ctx, hash any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RequestChunk", reflect.TypeOf((*MockPeer)(nil).RequestChunk), ctx, hash)
}

// MockChunkSink is a mock of ChunkSink interface.
type MockChunkSink struct {
	ctrl     *gomock.Controller
	recorder *MockChunkSinkMockRecorder
}

// MockChunkSinkMockRecorder is the mock recorder for MockChunkSink.
type MockChunkSinkMockRecorder struct {
	mock *MockChunkSink
}

// NewMockChunkSink creates a new mock instance.
func NewMockChunkSink(ctrl *gomock.Controller) *MockChunkSink {
	mock := &MockChunkSink{ctrl: ctrl}
	mock.recorder = &MockChunkSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockChunkSink) EXPECT() *MockChunkSinkMockRecorder {
	return m.recorder
}

// Feed mocks base method.
func (m *MockChunkSink) Feed(ctx context.Context, kind snapshot.ChunkKind, hash common.Hash, chunk []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Feed", ctx, kind, hash, chunk)
	ret0, _ := ret[0].(error)
	return ret0
}

// Feed indicates an expected call of Feed.
func (mr *MockChunkSinkMockRecorder) Feed(ctx, kind, hash, chunk any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Feed", reflect.TypeOf((*MockChunkSink)(nil).Feed), ctx, kind, hash, chunk)
}
