package controller

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/shared/protocol"
	"github.com/lanfleet/lanfleet/shared/types"
)

// PendingTransfer is the controller-side record of an in-flight file push
// to one client. The whole file is buffered in memory before the first
// chunk goes out, matching the source's QFile::readAll; the file is not
// re-read from disk while streaming.
type PendingTransfer struct {
	ClientID    string
	FilePath    string
	InstallArgs string
	Data        []byte
	SentSize    int64
}

func (t *PendingTransfer) done() bool {
	return t.SentSize >= int64(len(t.Data))
}

func (t *PendingTransfer) percent() int {
	if len(t.Data) == 0 {
		return 100
	}
	return int(t.SentSize * 100 / int64(len(t.Data)))
}

// startTransferLoop begins sending s's pending transfer in chunks. Each
// chunk send requeues itself via transferTick rather than looping
// tightly, so a heartbeat write or another queued frame for this session
// gets a chance to acquire writeMu between chunks — the Go analogue of
// the source's continueFileTransfer self-posting onto the Qt event loop
// via a queued connection.
func (m *Manager) startTransferLoop(s *ClientSession) {
	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-s.transferTick:
				if !m.sendNextChunk(s) {
					return
				}
				// Yield before requeuing so other goroutines waiting on
				// s.writeMu (heartbeat ticker, command replies) get a
				// turn between chunks, matching the source's mandatory
				// inter-chunk yield.
				runtime.Gosched()
				select {
				case s.transferTick <- struct{}{}:
				default:
				}
			}
		}
	}()

	s.transferTick <- struct{}{}
}

// sendNextChunk sends one chunk of s's pending transfer, or FILE_TRANSFER_END
// once fully sent. Returns false when the transfer loop should stop (no
// transfer pending, or it has just finalized).
func (m *Manager) sendNextChunk(s *ClientSession) bool {
	t := s.getTransfer()
	if t == nil {
		return false
	}

	if t.done() {
		if err := s.write(protocol.CmdFileTransferEnd, nil); err != nil {
			s.logger.Warn("failed to send FILE_TRANSFER_END", zap.Error(err))
		}
		return false
	}

	remaining := int64(len(t.Data)) - t.SentSize
	chunkSize := int64(protocol.ChunkSize)
	if remaining < chunkSize {
		chunkSize = remaining
	}
	chunk := t.Data[t.SentSize : t.SentSize+chunkSize]

	if err := s.write(protocol.CmdFileTransferData, chunk); err != nil {
		s.logger.Warn("failed to send FILE_TRANSFER_DATA chunk", zap.Error(err))
		s.setTransfer(nil)
		return false
	}

	t.SentSize += chunkSize
	percent := t.percent()

	m.sink.Publish(Event{
		Kind:     types.EventTransferProgress,
		ClientID: s.ID.String(),
		Payload:  map[string]any{"percent": percent, "sentSize": t.SentSize, "fileSize": len(t.Data)},
	})

	return true
}
