package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessSilentArgs(t *testing.T) {
	assert.Equal(t, "/VERYSILENT /SUPPRESSMSGBOXES /NORESTART", guessSilentArgs(`C:\tmp\setup-app.exe`))
	assert.Equal(t, "/VERYSILENT /SUPPRESSMSGBOXES /NORESTART", guessSilentArgs(`C:\tmp\InnoInstaller.exe`))
	assert.Equal(t, "/S", guessSilentArgs(`C:\tmp\nsis-installer.exe`))
	assert.Equal(t, `/s /v"/qn"`, guessSilentArgs(`C:\tmp\installshield_pkg.exe`))
	assert.Equal(t, "/S /silent /quiet", guessSilentArgs(`C:\tmp\random.exe`))
}

func TestSplitUninstallCommandQuoted(t *testing.T) {
	name, args, err := splitUninstallCommand(`"C:\Program Files\App\uninstall.exe" /foo bar`)
	require.NoError(t, err)
	assert.Equal(t, `C:\Program Files\App\uninstall.exe`, name)
	assert.Equal(t, []string{"/foo", "bar"}, args)
}

func TestSplitUninstallCommandUnquoted(t *testing.T) {
	name, args, err := splitUninstallCommand(`msiexec /x {GUID}`)
	require.NoError(t, err)
	assert.Equal(t, "msiexec", name)
	assert.Equal(t, []string{"/x", "{GUID}"}, args)
}

func TestSplitUninstallCommandEmpty(t *testing.T) {
	_, _, err := splitUninstallCommand("   ")
	assert.Error(t, err)
}

func TestEnsureSilentFlagsMsiexec(t *testing.T) {
	args := ensureSilentFlags("msiexec", []string{"/x", "{GUID}"})
	assert.Contains(t, args, "/quiet")
	assert.Contains(t, args, "/norestart")
}

func TestEnsureSilentFlagsGenericAddsDefault(t *testing.T) {
	args := ensureSilentFlags(`C:\App\uninstall.exe`, nil)
	assert.Equal(t, []string{"/S"}, args)
}

func TestEnsureSilentFlagsGenericRespectsExisting(t *testing.T) {
	args := ensureSilentFlags(`C:\App\uninstall.exe`, []string{"/silent"})
	assert.Equal(t, []string{"/silent"}, args)
}

func TestBuildInstallCmdUnsupportedExtension(t *testing.T) {
	_, err := buildInstallCmd(nil, "archive.zip", "")
	assert.ErrorIs(t, err, ErrUnsupportedInstaller)
}
