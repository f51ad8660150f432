// Package types defines shared domain types used by both the controller
// and agent modules.
package types

// ─── Client session ──────────────────────────────────────────────────────

// ClientStatus represents the current connection state of an agent as
// seen by the controller.
type ClientStatus string

const (
	ClientStatusOnline  ClientStatus = "online"
	ClientStatusOffline ClientStatus = "offline"
)

// ─── File transfer ───────────────────────────────────────────────────────

// TransferState represents where a file push/pull currently sits in its
// state machine. Controller-side PendingTransfer and agent-side
// ReceivingFile each use the subset of values relevant to their role.
type TransferState string

const (
	TransferIdle             TransferState = "idle"
	TransferAwaitingStartAck TransferState = "awaiting_start_ack"
	TransferStreaming        TransferState = "streaming"
	TransferFinalizing       TransferState = "finalizing"
	TransferNoTransfer       TransferState = "no_transfer"
	TransferReceiving        TransferState = "receiving"
	TransferCompleted        TransferState = "completed"
)

// ─── Inventory ───────────────────────────────────────────────────────────

// SystemInfo is the hardware/OS snapshot an agent reports on request.
type SystemInfo struct {
	ComputerName string `json:"computerName"`
	OSVersion    string `json:"osVersion"`
	CPUInfo      string `json:"cpuInfo"`
	TotalMemory  uint64 `json:"totalMemory"` // MiB
	FreeMemory   uint64 `json:"freeMemory"`  // MiB
	DiskInfo     string `json:"diskInfo"`
	MACAddress   string `json:"macAddress"`
	IPAddress    string `json:"ipAddress"`
}

// SoftwareEntry describes one installed package.
type SoftwareEntry struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Publisher    string `json:"publisher"`
	InstallDate  string `json:"installDate"`
	InstallPath  string `json:"installPath"`
	UninstallCmd string `json:"uninstallCmd"`
}

// ─── Events ──────────────────────────────────────────────────────────────

// EventKind identifies the kind of controller-side event delivered to
// operator subscribers over the event stream.
type EventKind string

const (
	EventClientConnected        EventKind = "client_connected"
	EventClientDisconnected     EventKind = "client_disconnected"
	EventClientInfoUpdated      EventKind = "client_info_updated"
	EventSysInfoReceived        EventKind = "sysinfo_received"
	EventSoftwareListReceived   EventKind = "software_list_received"
	EventInstallResult          EventKind = "install_result"
	EventUninstallResult        EventKind = "uninstall_result"
	EventTransferProgress       EventKind = "transfer_progress"
	EventLog                    EventKind = "log"
)

// ─── Pagination ──────────────────────────────────────────────────────────

// Page holds the pagination parameters `GET /clients` was served with.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PagedResult wraps a list result with a total count, used by
// `GET /clients` once the connected fleet outgrows a single response.
type PagedResult[T any] struct {
	Items []T  `json:"items"`
	Total int  `json:"total"`
	Page  Page `json:"page"`
}
