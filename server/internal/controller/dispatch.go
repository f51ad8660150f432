package controller

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/shared/protocol"
	"github.com/lanfleet/lanfleet/shared/types"
)

// dispatch routes one frame received from s through to the matching
// handler. Malformed payloads and unknown commands are logged and
// otherwise ignored — never fatal to the session, per the protocol's
// error-handling policy.
func (m *Manager) dispatch(s *ClientSession, f protocol.Frame) {
	switch f.Cmd {
	case protocol.CmdClientInfo:
		m.handleClientInfo(s, f.Payload)

	case protocol.CmdHeartbeat:
		s.touchHeartbeat()
		if err := s.write(protocol.CmdHeartbeatAck, nil); err != nil {
			s.logger.Warn("failed to send HEARTBEAT_ACK", zap.Error(err))
		}

	case protocol.CmdSysInfoResponse:
		m.handleSysInfoResponse(s, f.Payload)

	case protocol.CmdSoftwareResponse:
		m.handleSoftwareResponse(s, f.Payload)

	case protocol.CmdInstallResponse:
		m.handleInstallResponse(s, f.Payload)

	case protocol.CmdUninstallResponse:
		m.handleUninstallResponse(s, f.Payload)

	case protocol.CmdFileTransferAck:
		m.handleFileTransferAck(s, f.Payload)

	default:
		s.logger.Debug("ignoring unhandled command", zap.Stringer("cmd", f.Cmd))
	}
}

func (m *Manager) handleClientInfo(s *ClientSession, payload []byte) {
	var info protocol.ClientInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		s.logger.Warn("malformed CLIENT_INFO payload", zap.Error(err))
		return
	}
	s.updateIdentity(info)
	m.sink.Publish(Event{Kind: types.EventClientInfoUpdated, ClientID: s.ID.String(), Payload: info})
}

func (m *Manager) handleSysInfoResponse(s *ClientSession, payload []byte) {
	var info protocol.SysInfoResponse
	if err := json.Unmarshal(payload, &info); err != nil {
		s.logger.Warn("malformed SYSINFO_RESPONSE payload", zap.Error(err))
		return
	}
	m.sink.Publish(Event{Kind: types.EventSysInfoReceived, ClientID: s.ID.String(), Payload: info})
}

func (m *Manager) handleSoftwareResponse(s *ClientSession, payload []byte) {
	var resp protocol.SoftwareResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		s.logger.Warn("malformed SOFTWARE_RESPONSE payload", zap.Error(err))
		return
	}
	m.sink.Publish(Event{Kind: types.EventSoftwareListReceived, ClientID: s.ID.String(), Payload: resp})
}

func (m *Manager) handleInstallResponse(s *ClientSession, payload []byte) {
	var resp protocol.InstallResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		s.logger.Warn("malformed INSTALL_RESPONSE payload", zap.Error(err))
		return
	}
	// The responding INSTALL_RESPONSE always closes out whatever transfer
	// was pending for this client, whether it arrived via the direct
	// INSTALL_SOFTWARE path or the chunked transfer's finalization.
	s.setTransfer(nil)
	m.sink.Publish(Event{Kind: types.EventInstallResult, ClientID: s.ID.String(), Payload: resp})
}

func (m *Manager) handleUninstallResponse(s *ClientSession, payload []byte) {
	var resp protocol.UninstallResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		s.logger.Warn("malformed UNINSTALL_RESPONSE payload", zap.Error(err))
		return
	}
	m.sink.Publish(Event{Kind: types.EventUninstallResult, ClientID: s.ID.String(), Payload: resp})
}

// handleFileTransferAck continues a Streaming transfer on success, or
// aborts it and reports failure immediately — this is the only ACK in
// the chunked protocol besides the post-START handshake.
func (m *Manager) handleFileTransferAck(s *ClientSession, payload []byte) {
	var ack protocol.FileTransferAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		s.logger.Warn("malformed FILE_TRANSFER_ACK payload", zap.Error(err))
		return
	}

	if !ack.Success {
		s.setTransfer(nil)
		m.sink.Publish(Event{
			Kind:     types.EventInstallResult,
			ClientID: s.ID.String(),
			Payload:  protocol.InstallResponse{Success: false, Message: ack.Message},
		})
		return
	}

	m.startTransferLoop(s)
}
