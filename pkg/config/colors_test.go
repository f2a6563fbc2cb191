package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadColors_EmbeddedOnly(t *testing.T) {
	colors, err := loadColors(defaultsFS, "", "")
	require.NoError(t, err)

	assert.Equal(t, "180,180,255", colors.Setup)
	assert.Equal(t, "0,200,200", colors.Scenario)
	assert.Equal(t, "0,200,0", colors.Step)
	assert.Equal(t, "200,100,200", colors.Summary)
	assert.Equal(t, "255,192,0", colors.Warn)
	assert.Equal(t, "255,64,64", colors.Error)
	assert.Equal(t, "160,160,160", colors.Timestamp)
	assert.Equal(t, "180,180,180", colors.Info)
}

func TestLoadColors_LocalOverridesGlobal(t *testing.T) {
	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "global-config")
	localConfig := filepath.Join(tmpDir, "local-config")

	require.NoError(t, os.WriteFile(globalConfig, []byte("color_step = #ff0000\ncolor_error = #00ff00\n"), 0o600))
	require.NoError(t, os.WriteFile(localConfig, []byte("color_step = #0000ff\n"), 0o600))

	colors, err := loadColors(defaultsFS, localConfig, globalConfig)
	require.NoError(t, err)

	assert.Equal(t, "0,0,255", colors.Step, "local wins")
	assert.Equal(t, "0,255,0", colors.Error, "global kept")
	assert.Equal(t, "0,200,200", colors.Scenario, "embedded fallback")
}

func TestLoadColors_InvalidColor(t *testing.T) {
	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "config")
	require.NoError(t, os.WriteFile(globalConfig, []byte("color_warn = orange\n"), 0o600))

	_, err := loadColors(defaultsFS, "", globalConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid color_warn")
}

func TestLoadColors_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	colors, err := loadColors(defaultsFS, filepath.Join(dir, "nope"), filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, "0,200,0", colors.Step)
}

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		want    string
		wantErr string
	}{
		{name: "red", hex: "#ff0000", want: "255,0,0"},
		{name: "mixed case", hex: "#A0b0C0", want: "160,176,192"},
		{name: "no hash", hex: "ff0000", wantErr: "must start with #"},
		{name: "short", hex: "#fff", wantErr: "must be 7 characters"},
		{name: "not hex", hex: "#gggggg", wantErr: "invalid hex color"},
		{name: "empty", hex: "", wantErr: "must start with #"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := hexToRGB(tc.hex)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
