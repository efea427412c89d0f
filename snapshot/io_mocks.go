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
	context "context"
	reflect "reflect"

	common "github.com/Fantom-foundation/Warp/common"
	gomock "go.uber.org/mock/gomock"
)

// MockWriter is a mock of Writer interface.
type MockWriter struct {
	ctrl     *gomock.Controller
	recorder *MockWriterMockRecorder
}

// MockWriterMockRecorder is the mock recorder for MockWriter.
type MockWriterMockRecorder struct {
	mock *MockWriter
}

// NewMockWriter creates a new mock instance.
func NewMockWriter(ctrl *gomock.Controller) *MockWriter {
	mock := &MockWriter{ctrl: ctrl}
	mock.recorder = &MockWriterMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockWriter) EXPECT() *MockWriterMockRecorder {
	return m.recorder
}

// Finish mocks base method.
func (m *MockWriter) Finish(manifest ManifestData) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Finish", manifest)
	ret0, _ := ret[0].(error)
	return ret0
}

// Finish indicates an expected call of Finish.
func (mr *MockWriterMockRecorder) Finish(manifest any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Finish", reflect.TypeOf((*MockWriter)(nil).Finish), manifest)
}

// Write mocks base method.
func (m *MockWriter) Write(chunk []byte) (common.Hash, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Write", chunk)
	ret0, _ := ret[0].(common.Hash)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Write indicates an expected call of Write.
func (mr *MockWriterMockRecorder) Write(chunk any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Write", reflect.TypeOf((*MockWriter)(nil).Write), chunk)
}

// MockChunkSource is a mock of ChunkSource interface.
type MockChunkSource struct {
	ctrl     *gomock.Controller
	recorder *MockChunkSourceMockRecorder
}

// MockChunkSourceMockRecorder is the mock recorder for MockChunkSource.
type MockChunkSourceMockRecorder struct {
	mock *MockChunkSource
}

// NewMockChunkSource creates a new mock instance.
func NewMockChunkSource(ctrl *gomock.Controller) *MockChunkSource {
	mock := &MockChunkSource{ctrl: ctrl}
	mock.recorder = &MockChunkSourceMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockChunkSource) EXPECT() *MockChunkSourceMockRecorder {
	return m.recorder
}

// Chunk mocks base method.
func (m *MockChunkSource) Chunk(hash common.Hash) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Chunk", hash)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Chunk indicates an expected call of Chunk.
func (mr *MockChunkSourceMockRecorder) Chunk(hash any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Chunk", reflect.TypeOf((*MockChunkSource)(nil).Chunk), hash)
}

// MockReader is a mock of Reader interface.
type MockReader struct {
	ctrl     *gomock.Controller
	recorder *MockReaderMockRecorder
}

// MockReaderMockRecorder is the mock recorder for MockReader.
type MockReaderMockRecorder struct {
	mock *MockReader
}

// NewMockReader creates a new mock instance.
func NewMockReader(ctrl *gomock.Controller) *MockReader {
	mock := &MockReader{ctrl: ctrl}
	mock.recorder = &MockReaderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockReader) EXPECT() *MockReaderMockRecorder {
	return m.recorder
}

// Chunk mocks base method.
func (m *MockReader) Chunk(hash common.Hash) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Chunk", hash)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Chunk indicates an expected call of Chunk.
func (mr *MockReaderMockRecorder) Chunk(hash any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Chunk", reflect.TypeOf((*MockReader)(nil).Chunk), hash)
}

// Manifest mocks base method.
func (m *MockReader) Manifest() ManifestData {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Manifest")
	ret0, _ := ret[0].(ManifestData)
	return ret0
}

// Manifest indicates an expected call of Manifest.
func (mr *MockReaderMockRecorder) Manifest() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Manifest", reflect.TypeOf((*MockReader)(nil).Manifest))
}

// MockBlockChunker is a mock of BlockChunker interface.
type MockBlockChunker struct {
	ctrl     *gomock.Controller
	recorder *MockBlockChunkerMockRecorder
}

// MockBlockChunkerMockRecorder is the mock recorder for MockBlockChunker.
type MockBlockChunkerMockRecorder struct {
	mock *MockBlockChunker
}

// NewMockBlockChunker creates a new mock instance.
func NewMockBlockChunker(ctrl *gomock.Controller) *MockBlockChunker {
	mock := &MockBlockChunker{ctrl: ctrl}
	mock.recorder = &MockBlockChunkerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBlockChunker) EXPECT() *MockBlockChunkerMockRecorder {
	return m.recorder
}

// ChunkBlocks mocks base method.
func (m *MockBlockChunker) ChunkBlocks(ctx context.Context, writer Writer, progress *Progress) ([]common.Hash, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChunkBlocks", ctx, writer, progress)
	ret0, _ := ret[0].([]common.Hash)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ChunkBlocks indicates an expected call of ChunkBlocks.
func (mr *MockBlockChunkerMockRecorder) ChunkBlocks(ctx, writer, progress any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChunkBlocks", reflect.TypeOf((*MockBlockChunker)(nil).ChunkBlocks), ctx, writer, progress)
}

// MockBlockRebuilder is a mock of BlockRebuilder interface.
type MockBlockRebuilder struct {
	ctrl     *gomock.Controller
	recorder *MockBlockRebuilderMockRecorder
}

// MockBlockRebuilderMockRecorder is the mock recorder for MockBlockRebuilder.
type MockBlockRebuilderMockRecorder struct {
	mock *MockBlockRebuilder
}

// NewMockBlockRebuilder creates a new mock instance.
func NewMockBlockRebuilder(ctrl *gomock.Controller) *MockBlockRebuilder {
	mock := &MockBlockRebuilder{ctrl: ctrl}
	mock.recorder = &MockBlockRebuilderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBlockRebuilder) EXPECT() *MockBlockRebuilderMockRecorder {
	return m.recorder
}

// Feed mocks base method.
func (m *MockBlockRebuilder) Feed(ctx context.Context, chunk []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Feed", ctx, chunk)
	ret0, _ := ret[0].(error)
	return ret0
}

// Feed indicates an expected call of Feed.
func (mr *MockBlockRebuilderMockRecorder) Feed(ctx, chunk any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Feed", reflect.TypeOf((*MockBlockRebuilder)(nil).Feed), ctx, chunk)
}

// Finalize mocks base method.
func (m *MockBlockRebuilder) Finalize() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Finalize")
	ret0, _ := ret[0].(error)
	return ret0
}

// Finalize indicates an expected call of Finalize.
func (mr *MockBlockRebuilderMockRecorder) Finalize() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Finalize", reflect.TypeOf((*MockBlockRebuilder)(nil).Finalize))
}
