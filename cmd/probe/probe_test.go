package probe_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/cmd/probe"
)

func TestReadinessWithSimCard(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SIGNER_DOTENV", filepath.Join(dir, "missing.env"))
	t.Setenv("SIGNER_LOGGER_PRETTYPRINTCONSOLE", "false")
	t.Setenv("SIGNER_BSIM_TRANSPORT", "sim")
	t.Setenv("SIGNER_BSIM_SIMMNEMONIC", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	t.Setenv("SIGNER_BSIM_SIMSTATEPATH", filepath.Join(dir, "simcard.toml"))
	t.Setenv("SIGNER_VAULT_DIR", filepath.Join(dir, "vaults"))

	expected := map[string]string{
		"liveness":  "Healthy.",
		"readiness": "Ready. BSIM applet version 0100",
	}

	for probeName, message := range expected {
		cmd := probe.New()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{probeName, "--verbose"})

		require.NoError(t, cmd.ExecuteContext(t.Context()))
		assert.Contains(t, out.String(), message)
	}

	assert.DirExists(t, filepath.Join(dir, "vaults"))
}
