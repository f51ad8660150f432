// Package inventory collects the SystemInfo snapshot and installed-software
// enumeration the agent reports to the controller on GET_SYSINFO and
// GET_SOFTWARE. It completes what the teacher's metrics package left as a
// gopsutil TODO, and reproduces the original Windows agent's field
// derivation for non-Windows hosts through gopsutil's cross-platform
// collectors.
package inventory

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/lanfleet/lanfleet/shared/types"
)

// Collect gathers the full SystemInfo snapshot. Every sub-collector
// degrades to an empty/zero field rather than failing the whole call,
// matching the original's per-field best-effort approach.
func Collect(ctx context.Context) types.SystemInfo {
	info := types.SystemInfo{
		ComputerName: computerName(),
		OSVersion:    osVersion(ctx),
		CPUInfo:      cpuInfo(ctx),
		DiskInfo:     diskInfo(ctx),
	}
	info.TotalMemory, info.FreeMemory = memoryInfo(ctx)
	info.MACAddress, info.IPAddress = primaryInterface()
	return info
}

func computerName() string {
	name, err := host.HostnameWithContext(context.Background())
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

func osVersion(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "unknown"
	}
	parts := []string{info.Platform, info.PlatformVersion}
	if info.KernelVersion != "" {
		parts = append(parts, fmt.Sprintf("(Build %s)", info.KernelVersion))
	}
	return strings.TrimSpace(strings.Join(nonEmpty(parts), " "))
}

func cpuInfo(ctx context.Context) string {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return "Unknown CPU"
	}
	counts, _ := cpu.CountsWithContext(ctx, true)
	if counts == 0 {
		counts = len(infos)
	}
	return fmt.Sprintf("%s (%d cores)", infos[0].ModelName, counts)
}

func memoryInfo(ctx context.Context) (totalMB, freeMB uint64) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0
	}
	return v.Total / (1024 * 1024), v.Available / (1024 * 1024)
}

// diskInfo joins a "<mountpoint> <freeGB>GB/<totalGB>GB" summary per
// mounted local volume, matching the original's comma-joined format.
func diskInfo(ctx context.Context) string {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return ""
	}
	var parts []string
	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		totalGB := usage.Total / (1024 * 1024 * 1024)
		freeGB := usage.Free / (1024 * 1024 * 1024)
		parts = append(parts, fmt.Sprintf("%s %dGB/%dGB", p.Mountpoint, freeGB, totalGB))
	}
	return strings.Join(parts, ", ")
}

// primaryInterface returns the MAC and first non-loopback IPv4 address of
// the first interface that is up and running, matching the original's
// selection rule (and its all-zero-MAC exclusion).
func primaryInterface() (mac, ip string) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagRunning == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		candidateMAC := iface.HardwareAddr.String()
		if candidateMAC == "00:00:00:00:00:00" {
			candidateMAC = ""
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil || strings.HasPrefix(v4.String(), "127.") {
				continue
			}
			if candidateMAC != "" {
				return candidateMAC, v4.String()
			}
			return mac, v4.String()
		}
	}
	return "", ""
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
