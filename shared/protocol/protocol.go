// Package protocol implements the length-prefixed binary framing used
// between the controller and its agents, and the command codes and JSON
// envelopes carried by that framing.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size, in bytes, of a frame header: a 4-byte
// big-endian payload length followed by a 4-byte big-endian command code.
const HeaderSize = 8

// MaxPayloadSize bounds the size of a single frame's payload. Frames
// advertising a larger length tear down the session they arrived on.
const MaxPayloadSize = 16 * 1024 * 1024 // 16 MiB

// ChunkSize is the fixed size of file-transfer data chunks; the final
// chunk of a transfer may be shorter.
const ChunkSize = 64 * 1024 // 64 KiB

// Command identifies the kind of message carried by a frame.
type Command uint32

const (
	CmdHeartbeat         Command = 0x0001
	CmdHeartbeatAck      Command = 0x0002
	CmdGetSysInfo        Command = 0x0010
	CmdSysInfoResponse   Command = 0x0011
	CmdGetSoftware       Command = 0x0020
	CmdSoftwareResponse  Command = 0x0021
	CmdInstallSoftware   Command = 0x0030
	CmdInstallResponse   Command = 0x0031
	CmdUninstallSoftware Command = 0x0040
	CmdUninstallResponse Command = 0x0041
	CmdFileTransferStart Command = 0x0050
	CmdFileTransferData  Command = 0x0051
	CmdFileTransferEnd   Command = 0x0052
	CmdFileTransferAck   Command = 0x0053
	CmdClientInfo        Command = 0x0060
	CmdError             Command = 0x00FF
)

// String renders a command code for logging. Unknown codes render as a
// hex literal rather than panicking or returning an empty string.
func (c Command) String() string {
	switch c {
	case CmdHeartbeat:
		return "HEARTBEAT"
	case CmdHeartbeatAck:
		return "HEARTBEAT_ACK"
	case CmdGetSysInfo:
		return "GET_SYSINFO"
	case CmdSysInfoResponse:
		return "SYSINFO_RESPONSE"
	case CmdGetSoftware:
		return "GET_SOFTWARE"
	case CmdSoftwareResponse:
		return "SOFTWARE_RESPONSE"
	case CmdInstallSoftware:
		return "INSTALL_SOFTWARE"
	case CmdInstallResponse:
		return "INSTALL_RESPONSE"
	case CmdUninstallSoftware:
		return "UNINSTALL_SOFTWARE"
	case CmdUninstallResponse:
		return "UNINSTALL_RESPONSE"
	case CmdFileTransferStart:
		return "FILE_TRANSFER_START"
	case CmdFileTransferData:
		return "FILE_TRANSFER_DATA"
	case CmdFileTransferEnd:
		return "FILE_TRANSFER_END"
	case CmdFileTransferAck:
		return "FILE_TRANSFER_ACK"
	case CmdClientInfo:
		return "CLIENT_INFO"
	case CmdError:
		return "ERROR"
	default:
		return fmt.Sprintf("CMD(0x%04X)", uint32(c))
	}
}

// Frame is one fully-decoded message: a command and its payload bytes.
// Payload is opaque for binary commands (FILE_TRANSFER_DATA) and UTF-8
// compact JSON for the JSON-bearing commands.
type Frame struct {
	Cmd     Command
	Payload []byte
}

// ErrOversizeFrame is returned by the Decoder when a frame's advertised
// length exceeds MaxPayloadSize. The caller must tear down the session.
var ErrOversizeFrame = fmt.Errorf("protocol: frame payload exceeds %d bytes", MaxPayloadSize)

// Pack encodes cmd and payload into one wire frame: 4-byte big-endian
// length, 4-byte big-endian command, then payload verbatim.
func Pack(cmd Command, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(cmd))
	copy(buf[HeaderSize:], payload)
	return buf
}

// PackEmpty encodes a zero-payload frame, used for HEARTBEAT and the
// request commands that carry no body.
func PackEmpty(cmd Command) []byte {
	return Pack(cmd, nil)
}
