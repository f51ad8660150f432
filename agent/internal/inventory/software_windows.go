//go:build windows

package inventory

import (
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/lanfleet/lanfleet/shared/types"
)

// uninstallHives are the three registry locations Windows installers
// register themselves under: the native 64-bit hive, the WOW6432Node
// redirect for 32-bit installers on a 64-bit OS, and the per-user hive.
var uninstallHives = []struct {
	root registry.Key
	path string
}{
	{registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
	{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`},
	{registry.CURRENT_USER, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
}

// ListSoftware enumerates installed packages from the Windows uninstall
// registry hives, applying the same filtering and dedup rules as the
// original Windows agent.
func ListSoftware() ([]types.SoftwareEntry, error) {
	seen := make(map[string]struct{})
	var entries []types.SoftwareEntry

	for _, hive := range uninstallHives {
		key, err := registry.OpenKey(hive.root, hive.path, registry.ENUMERATE_SUB_KEYS|registry.READ)
		if err != nil {
			continue
		}

		names, err := key.ReadSubKeyNames(-1)
		key.Close()
		if err != nil {
			continue
		}

		for _, name := range names {
			entry, ok := readUninstallEntry(hive.root, hive.path+`\`+name)
			if !ok {
				continue
			}

			dedupKey := entry.Name + "|" + entry.Version
			if _, exists := seen[dedupKey]; exists {
				continue
			}
			seen[dedupKey] = struct{}{}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func readUninstallEntry(root registry.Key, path string) (types.SoftwareEntry, bool) {
	key, err := registry.OpenKey(root, path, registry.QUERY_VALUE)
	if err != nil {
		return types.SoftwareEntry{}, false
	}
	defer key.Close()

	displayName, _, err := key.GetStringValue("DisplayName")
	if err != nil || displayName == "" {
		return types.SoftwareEntry{}, false
	}
	if strings.Contains(displayName, "Update") || strings.Contains(displayName, "KB") {
		return types.SoftwareEntry{}, false
	}

	if systemComponent, _, err := key.GetIntegerValue("SystemComponent"); err == nil && systemComponent == 1 {
		return types.SoftwareEntry{}, false
	}

	uninstallCmd, _, _ := key.GetStringValue("UninstallString")
	if uninstallCmd == "" {
		return types.SoftwareEntry{}, false
	}

	version, _, _ := key.GetStringValue("DisplayVersion")
	publisher, _, _ := key.GetStringValue("Publisher")
	installDate, _, _ := key.GetStringValue("InstallDate")
	installLocation, _, _ := key.GetStringValue("InstallLocation")

	return types.SoftwareEntry{
		Name:         displayName,
		Version:      version,
		Publisher:    publisher,
		InstallDate:  installDate,
		InstallPath:  installLocation,
		UninstallCmd: uninstallCmd,
	}, true
}
