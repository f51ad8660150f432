package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/agent/internal/executor"
	"github.com/lanfleet/lanfleet/agent/internal/inventory"
	"github.com/lanfleet/lanfleet/shared/protocol"
)

// dispatch routes one decoded frame to its handler. Unknown or malformed
// commands are logged and ignored — never fatal to the session.
func (s *session) dispatch(ctx context.Context, f protocol.Frame) {
	switch f.Cmd {
	case protocol.CmdHeartbeatAck:
		// no-op

	case protocol.CmdGetSysInfo:
		s.handleGetSysInfo(ctx)

	case protocol.CmdGetSoftware:
		s.handleGetSoftware()

	case protocol.CmdInstallSoftware:
		s.handleInstallSoftware(ctx, f.Payload)

	case protocol.CmdUninstallSoftware:
		s.handleUninstallSoftware(ctx, f.Payload)

	case protocol.CmdFileTransferStart:
		s.handleFileTransferStart(f.Payload)

	case protocol.CmdFileTransferData:
		s.handleFileTransferData(ctx, f.Payload)

	case protocol.CmdFileTransferEnd:
		s.handleFileTransferEnd(ctx)

	default:
		s.logger.Debug("ignoring unhandled command", zap.Stringer("cmd", f.Cmd))
	}
}

func (s *session) handleGetSysInfo(ctx context.Context) {
	info := inventory.Collect(ctx)
	s.writeJSON(protocol.CmdSysInfoResponse, protocol.SysInfoResponse{
		ComputerName: info.ComputerName,
		OSVersion:    info.OSVersion,
		CPUInfo:      info.CPUInfo,
		TotalMemory:  info.TotalMemory,
		FreeMemory:   info.FreeMemory,
		DiskInfo:     info.DiskInfo,
		MACAddress:   info.MACAddress,
		IPAddress:    info.IPAddress,
	})
}

func (s *session) handleGetSoftware() {
	entries, err := inventory.ListSoftware()
	if err != nil {
		s.logger.Warn("software enumeration failed", zap.Error(err))
		entries = nil
	}

	resp := protocol.SoftwareResponse{Count: len(entries)}
	for _, e := range entries {
		resp.Software = append(resp.Software, protocol.SoftwareEntry{
			Name:         e.Name,
			Version:      e.Version,
			Publisher:    e.Publisher,
			InstallDate:  e.InstallDate,
			InstallPath:  e.InstallPath,
			UninstallCmd: e.UninstallCmd,
		})
	}
	s.writeJSON(protocol.CmdSoftwareResponse, resp)
}

// handleInstallSoftware implements the direct-path INSTALL_SOFTWARE
// command: the file is assumed to already be present on the agent's
// filesystem. Runs the executor off the read-loop goroutine so a
// multi-minute installer cannot stall frame dispatch.
func (s *session) handleInstallSoftware(ctx context.Context, payload []byte) {
	var req protocol.InstallSoftware
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("malformed INSTALL_SOFTWARE payload", zap.Error(err))
		return
	}

	go func() {
		result := s.exec.Install(ctx, req.FilePath, req.Args)
		s.writeJSON(protocol.CmdInstallResponse, protocol.InstallResponse{
			Success:  result.Success,
			Message:  result.Message,
			FilePath: req.FilePath,
		})
	}()
}

func (s *session) handleUninstallSoftware(ctx context.Context, payload []byte) {
	var req protocol.UninstallSoftware
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("malformed UNINSTALL_SOFTWARE payload", zap.Error(err))
		return
	}

	go func() {
		result := s.exec.Uninstall(ctx, req.UninstallCmd)
		s.writeJSON(protocol.CmdUninstallResponse, protocol.UninstallResponse{
			Success: result.Success,
			Message: result.Message,
			Name:    req.Name,
		})
	}()
}

func (s *session) handleFileTransferStart(payload []byte) {
	var start protocol.FileTransferStart
	if err := json.Unmarshal(payload, &start); err != nil {
		s.logger.Warn("malformed FILE_TRANSFER_START payload", zap.Error(err))
		return
	}
	ack := s.receiver.Start(start)
	s.writeJSON(protocol.CmdFileTransferAck, ack)
}

func (s *session) handleFileTransferData(ctx context.Context, payload []byte) {
	size, report, err := s.receiver.Data(payload)
	if err != nil {
		// A _DATA frame in NoTransfer state is dropped without effect,
		// per the protocol's boundary behavior.
		return
	}
	if report {
		s.logger.Info("file transfer progress", zap.Int64("received", size))
	}
}

// handleFileTransferEnd finalizes the transfer. On a size match it runs
// the package executor against the received file and reports
// INSTALL_RESPONSE; on mismatch it reports a negative FILE_TRANSFER_ACK.
// Exactly one terminal event is emitted per transfer either way.
func (s *session) handleFileTransferEnd(ctx context.Context) {
	file, match, err := s.receiver.End()
	if err != nil {
		s.logger.Warn("failed to finalize file transfer", zap.Error(err))
		return
	}

	if !match {
		s.writeJSON(protocol.CmdFileTransferAck, protocol.FileTransferAck{
			Success: false,
			Message: fmt.Sprintf("expected %d got %d", file.ExpectedSize, file.ReceivedSize),
		})
		return
	}

	go func() {
		result := s.exec.Install(ctx, file.Path(), file.InstallArgs)
		s.writeJSON(protocol.CmdInstallResponse, protocol.InstallResponse{
			Success:      result.Success,
			Message:      result.Message,
			FilePath:     file.Path(),
			ReceivedSize: file.ReceivedSize,
		})
		// Delete the temp file only after the executor has terminated —
		// the original deletes it before reporting, which races when the
		// executor is asynchronous.
		s.receiver.Cleanup(file)
	}()
}
