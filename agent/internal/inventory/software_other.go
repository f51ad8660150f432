//go:build !windows

package inventory

import (
	"bufio"
	"bytes"
	"os/exec"
	"strings"

	"github.com/lanfleet/lanfleet/shared/types"
)

// ListSoftware enumerates installed packages on non-Windows hosts via the
// host's native package manager. dpkg is tried first (Debian/Ubuntu), then
// rpm (RHEL/Fedora/SUSE); the first one present on PATH wins. There is no
// registry equivalent to scrape, so the uninstall command is synthesized
// as the matching package-manager remove invocation.
func ListSoftware() ([]types.SoftwareEntry, error) {
	if _, err := exec.LookPath("dpkg-query"); err == nil {
		return listDpkg()
	}
	if _, err := exec.LookPath("rpm"); err == nil {
		return listRPM()
	}
	return nil, nil
}

func listDpkg() ([]types.SoftwareEntry, error) {
	out, err := exec.Command("dpkg-query", "-W", "-f", `${Package}\t${Version}\t${Maintainer}\n`).Output()
	if err != nil {
		return nil, err
	}

	var entries []types.SoftwareEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		entry := types.SoftwareEntry{
			Name:         fields[0],
			Version:      fields[1],
			UninstallCmd: "apt-get remove -y " + fields[0],
		}
		if len(fields) >= 3 {
			entry.Publisher = fields[2]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func listRPM() ([]types.SoftwareEntry, error) {
	out, err := exec.Command("rpm", "-qa", "--qf", `%{NAME}\t%{VERSION}-%{RELEASE}\t%{VENDOR}\n`).Output()
	if err != nil {
		return nil, err
	}

	var entries []types.SoftwareEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		entry := types.SoftwareEntry{
			Name:         fields[0],
			Version:      fields[1],
			UninstallCmd: "rpm -e " + fields[0],
		}
		if len(fields) >= 3 {
			entry.Publisher = fields[2]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
