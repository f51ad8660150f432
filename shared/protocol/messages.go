package protocol

// ClientInfo is the identity frame an agent sends immediately on connect.
type ClientInfo struct {
	ComputerName string `json:"computerName"`
	IPAddress    string `json:"ipAddress"`
	MACAddress   string `json:"macAddress"`
	OSVersion    string `json:"osVersion"`
}

// SysInfoResponse is the agent's reply to GET_SYSINFO.
type SysInfoResponse struct {
	ComputerName string `json:"computerName"`
	OSVersion    string `json:"osVersion"`
	CPUInfo      string `json:"cpuInfo"`
	TotalMemory  uint64 `json:"totalMemory"`
	FreeMemory   uint64 `json:"freeMemory"`
	DiskInfo     string `json:"diskInfo"`
	MACAddress   string `json:"macAddress"`
	IPAddress    string `json:"ipAddress"`
}

// SoftwareEntry describes one installed package, round-trippable through
// JSON and shared between the SOFTWARE_RESPONSE payload and the agent's
// own inventory provider.
type SoftwareEntry struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Publisher    string `json:"publisher"`
	InstallDate  string `json:"installDate"`
	InstallPath  string `json:"installPath"`
	UninstallCmd string `json:"uninstallCmd"`
}

// SoftwareResponse is the agent's reply to GET_SOFTWARE.
type SoftwareResponse struct {
	Software []SoftwareEntry `json:"software"`
	Count    int             `json:"count"`
}

// InstallSoftware is the payload for the direct-path INSTALL_SOFTWARE
// command, used when the installer file already exists on the agent's
// filesystem (as opposed to the chunked FILE_TRANSFER_* flow).
type InstallSoftware struct {
	FilePath string `json:"filePath"`
	Args     string `json:"args"`
}

// UninstallSoftware is the payload for UNINSTALL_SOFTWARE.
type UninstallSoftware struct {
	Name         string `json:"name"`
	UninstallCmd string `json:"uninstallCmd"`
}

// InstallResponse is the agent's reply to INSTALL_SOFTWARE or to a
// completed file transfer, and the controller's reply to its own
// INSTALL_RESPONSE handling surfaced as an install-result event.
type InstallResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	FilePath     string `json:"filePath,omitempty"`
	ReceivedSize int64  `json:"receivedSize,omitempty"`
}

// UninstallResponse is the agent's reply to UNINSTALL_SOFTWARE.
type UninstallResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
}

// FileTransferStart announces an incoming chunked file transfer.
type FileTransferStart struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	InstallArgs string `json:"installArgs"`
}

// FileTransferAck is sent by the receiver after FILE_TRANSFER_START (to
// accept or reject the transfer) and, on a size mismatch, after
// FILE_TRANSFER_END.
type FileTransferAck struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	FilePath     string `json:"filePath,omitempty"`
	ReceivedSize int64  `json:"receivedSize,omitempty"`
}
