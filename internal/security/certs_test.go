package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedAndLoad(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "certs", "cert.pem")
	keyPath := filepath.Join(dir, "certs", "key.pem")

	require.NoError(t, GenerateSelfSigned(certPath, keyPath))

	_, err := os.Stat(certPath)
	require.NoError(t, err)
	_, err = os.Stat(keyPath)
	require.NoError(t, err)

	cfg, err := LoadServerTLSConfig(certPath, keyPath)
	require.NoError(t, err)
	require.Equal(t, []string{"http/1.1"}, cfg.NextProtos)
	require.Len(t, cfg.Certificates, 1)
}

func TestLoadServerTLSConfigMissingFile(t *testing.T) {
	_, err := LoadServerTLSConfig("/nonexistent/cert.pem", "/nonexistent/key.pem")
	require.Error(t, err)
}
