package transfer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lanfleet/lanfleet/shared/protocol"
)

func TestReceiverFullTransferSucceeds(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir)

	ack := r.Start(protocol.FileTransferStart{FileName: "pkg.exe", FileSize: 10, InstallArgs: "/S"})
	require.True(t, ack.Success)

	_, _, err := r.Data([]byte("01234"))
	require.NoError(t, err)
	size, _, err := r.Data([]byte("56789"))
	require.NoError(t, err)
	require.EqualValues(t, 10, size)

	file, match, err := r.End()
	require.NoError(t, err)
	require.True(t, match)

	data, err := os.ReadFile(file.Path())
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(data))

	r.Cleanup(file)
	_, statErr := os.Stat(file.Path())
	require.Error(t, statErr)
}

func TestReceiverSizeMismatchDeletesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir)

	r.Start(protocol.FileTransferStart{FileName: "pkg.exe", FileSize: 10})
	r.Data([]byte("01234"))

	file, match, err := r.End()
	require.NoError(t, err)
	require.False(t, match)
	_, statErr := os.Stat(file.path)
	require.Error(t, statErr)
}

func TestReceiverDataWithoutStartIsDropped(t *testing.T) {
	r := NewReceiver(t.TempDir())
	_, _, err := r.Data([]byte("x"))
	require.ErrorIs(t, err, ErrNoActiveTransfer)
}

func TestReceiverNewStartDiscardsPriorTransfer(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir)

	r.Start(protocol.FileTransferStart{FileName: "first.exe", FileSize: 100})
	firstPath := r.current.path

	r.Start(protocol.FileTransferStart{FileName: "second.exe", FileSize: 50})

	_, statErr := os.Stat(firstPath)
	require.Error(t, statErr)
}
