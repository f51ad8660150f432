// Package transfer implements the agent-side receiving half of the chunked
// file-transfer sub-protocol: NoTransfer -> Receiving -> Completed.
package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lanfleet/lanfleet/shared/protocol"
)

// progressStep is how often, in received bytes, a progress notification is
// emitted — "roughly every 1 MiB" per the original implementation.
const progressStep = 1 * 1024 * 1024

// ReceivingFile is the agent-side record of an in-flight file pull. At most
// one exists per agent; starting a new transfer while one is open discards
// the prior one, matching the controller-side PendingTransfer invariant.
type ReceivingFile struct {
	FileName     string
	ExpectedSize int64
	ReceivedSize int64
	InstallArgs  string

	path        string
	file        *os.File
	lastReport  int64
}

// Receiver drives the NoTransfer/Receiving/Completed state machine. It is
// not safe for concurrent use — the agent runtime serializes all frame
// dispatch onto a single goroutine per session.
type Receiver struct {
	tempDir string
	current *ReceivingFile
}

// NewReceiver creates a Receiver that writes incoming files under tempDir.
func NewReceiver(tempDir string) *Receiver {
	return &Receiver{tempDir: tempDir}
}

// ErrNoActiveTransfer is returned by Data/End when no FILE_TRANSFER_START
// has been accepted — callers must drop the frame without effect.
var ErrNoActiveTransfer = errors.New("transfer: no active transfer")

// Start begins receiving a new file, discarding any transfer already in
// flight. Returns the FILE_TRANSFER_ACK payload to send back.
func (r *Receiver) Start(start protocol.FileTransferStart) protocol.FileTransferAck {
	r.discardCurrent()

	path := filepath.Join(r.tempDir, filepath.Base(start.FileName))
	f, err := os.Create(path)
	if err != nil {
		return protocol.FileTransferAck{Success: false, Message: fmt.Sprintf("open failed: %v", err)}
	}

	r.current = &ReceivingFile{
		FileName:     start.FileName,
		ExpectedSize: start.FileSize,
		InstallArgs:  start.InstallArgs,
		path:         path,
		file:         f,
	}

	return protocol.FileTransferAck{Success: true}
}

// Data appends a chunk to the in-flight file. It returns the current
// received size and, when a progress notification is due (every ~1 MiB),
// true for the second return value.
func (r *Receiver) Data(chunk []byte) (receivedSize int64, reportProgress bool, err error) {
	if r.current == nil {
		return 0, false, ErrNoActiveTransfer
	}

	if _, err := r.current.file.Write(chunk); err != nil {
		return r.current.ReceivedSize, false, fmt.Errorf("transfer: write failed: %w", err)
	}
	r.current.ReceivedSize += int64(len(chunk))

	due := r.current.ReceivedSize-r.current.lastReport >= progressStep
	if due {
		r.current.lastReport = r.current.ReceivedSize
	}
	return r.current.ReceivedSize, due, nil
}

// End finalizes the transfer: closes the file and reports whether the
// received size matches what was announced. On success the caller is
// responsible for invoking the package executor and then calling Cleanup;
// on mismatch the caller sends a negative FILE_TRANSFER_ACK and the
// Receiver returns to NoTransfer immediately.
func (r *Receiver) End() (file *ReceivingFile, sizeMatch bool, err error) {
	if r.current == nil {
		return nil, false, ErrNoActiveTransfer
	}

	f := r.current
	if cerr := f.file.Close(); cerr != nil {
		r.current = nil
		return f, false, fmt.Errorf("transfer: close failed: %w", cerr)
	}

	match := f.ReceivedSize == f.ExpectedSize
	if !match {
		os.Remove(f.path)
		r.current = nil
		return f, false, nil
	}

	// Success path: leave r.current set so Path()/Cleanup() can still
	// reach it after the caller runs the executor; reset happens in
	// Cleanup, not here, so the temp file survives until the executor
	// has run (Open Question #2: delete after, not before).
	return f, true, nil
}

// Path returns the temp file path for the most recently completed
// transfer, for handing to the package executor.
func (f *ReceivingFile) Path() string {
	return f.path
}

// Cleanup deletes the temp file and clears the active transfer. Call
// after the package executor has terminated.
func (r *Receiver) Cleanup(f *ReceivingFile) {
	os.Remove(f.path)
	if r.current == f {
		r.current = nil
	}
}

// Discard aborts any in-flight transfer without invoking the executor,
// used when the TCP session disconnects mid-stream.
func (r *Receiver) Discard() {
	r.discardCurrent()
}

func (r *Receiver) discardCurrent() {
	if r.current == nil {
		return
	}
	r.current.file.Close()
	os.Remove(r.current.path)
	r.current = nil
}
