package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackDecodeRoundTrip(t *testing.T) {
	frame := Pack(CmdHeartbeat, nil)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, frame)

	d := NewDecoder()
	d.Feed(frame)
	frames, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, CmdHeartbeat, frames[0].Cmd)
	assert.Empty(t, frames[0].Payload)
	assert.Equal(t, 0, d.Buffered())
}

func TestDecodePartialFrameStalls(t *testing.T) {
	d := NewDecoder()
	d.Feed(Pack(CmdHeartbeat, nil)[:HeaderSize])
	frames, err := d.Decode()
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, HeaderSize, d.Buffered())
}

func TestDecodeConcatenatedFramesByteByByte(t *testing.T) {
	payload1, _ := json.Marshal(ClientInfo{ComputerName: "host-a"})
	payload2, _ := json.Marshal(SoftwareResponse{Count: 0})
	stream := append(Pack(CmdClientInfo, payload1), Pack(CmdSoftwareResponse, payload2)...)

	d := NewDecoder()
	var got []Frame
	for _, b := range stream {
		d.Feed([]byte{b})
		frames, err := d.Decode()
		require.NoError(t, err)
		got = append(got, frames...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, CmdClientInfo, got[0].Cmd)
	assert.Equal(t, CmdSoftwareResponse, got[1].Cmd)
	assert.Equal(t, payload1, got[0].Payload)
}

func TestDecodeOversizeFrameReturnsError(t *testing.T) {
	buf := make([]byte, HeaderSize)
	// Advertise a length one byte over the cap; payload bytes are never
	// supplied since the decoder must reject before waiting for them.
	Pack(CmdHeartbeat, nil)
	oversized := Pack(CmdFileTransferData, nil)
	oversized[0] = 0x01 // MaxPayloadSize+1 = 0x01000001
	oversized[1] = 0x00
	oversized[2] = 0x00
	oversized[3] = 0x01

	d := NewDecoder()
	d.Feed(oversized)
	_, err := d.Decode()
	assert.ErrorIs(t, err, ErrOversizeFrame)
	_ = buf
}

func TestDecodeEmptyPayloadDispatches(t *testing.T) {
	d := NewDecoder()
	d.Feed(Pack(CmdHeartbeatAck, []byte{}))
	frames, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, CmdHeartbeatAck, frames[0].Cmd)
}

func TestCommandStringUnknown(t *testing.T) {
	assert.Equal(t, "CMD(0x1234)", Command(0x1234).String())
	assert.Equal(t, "HEARTBEAT", CmdHeartbeat.String())
}
