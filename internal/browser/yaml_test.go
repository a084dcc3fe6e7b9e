// internal/browser/yaml_test.go
package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxylens/internal/core/domain"
)

const edgeProfile = `
profiles:
  - name: Edge-131
    family: edge
    version: "131"
    user_agent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0"
    tls:
      cipher_suites: [2570, 4865, 4866, 4867]
      extensions: [2570, 0, 16, 43, 51]
      curves: [2570, 29]
      key_share_curves: [2570, 29]
      versions: [2570, 772, 771]
      alpn: [h2, http/1.1]
    http2:
      settings:
        - {id: 1, value: 65536}
        - {id: 4, value: 6291456}
      connection_flow: 15663105
      pseudo_header_order: [":method", ":authority", ":scheme", ":path"]
    headers:
      script:
        - {name: user-agent, value: edge}
        - {name: accept, value: "*/*"}
      image:
        - {name: user-agent, value: edge}
      beacon:
        - {name: content-length}
        - {name: user-agent, value: edge}
      poll:
        - {name: user-agent, value: edge}
    navigator:
      boolean_fingerprint: 1
      languages: [en-US]
`

func TestParseProfiles(t *testing.T) {
	specs, err := ParseProfiles([]byte(edgeProfile))
	require.NoError(t, err)
	require.Len(t, specs, 1)

	c, err := DefaultCatalog().With(specs...)
	require.NoError(t, err)

	p, err := c.Resolve("edge 131")
	require.NoError(t, err)
	assert.Equal(t, "edge-131", p.Name())
	assert.Equal(t, []string{"user-agent", "accept"}, p.HeaderOrder(domain.ContextScript))

	_, err = p.ClientHelloSpec()
	require.NoError(t, err)
}

func TestParseProfiles_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":         "profiles: []\n",
		"unknown field": "profiles:\n  - name: x\n    colour: red\n",
		"invalid":       "profiles:\n  - name: x\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(edgeProfile), 0o600))

	specs, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, "Edge-131", specs[0].Name)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
