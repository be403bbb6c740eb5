package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
)

func TestOverridePaths(t *testing.T) {
	dst := config.PathsConfig{
		GlobalSource:  "data/global.csv",
		DefenseSource: "data/defense.csv",
		CleanedJSON:   "data/cleaned_cyberattacks.json",
		StaticDir:     "static",
	}
	overridePaths(&dst, config.PathsConfig{
		DefenseSource: "/tmp/defense.xlsx",
		StaticDir:     "/srv/static",
	})

	assert.Equal(t, "data/global.csv", dst.GlobalSource)
	assert.Equal(t, "/tmp/defense.xlsx", dst.DefenseSource)
	assert.Equal(t, "data/cleaned_cyberattacks.json", dst.CleanedJSON)
	assert.Equal(t, "/srv/static", dst.StaticDir)
}

func TestSetupValidatesAfterFlagOverrides(t *testing.T) {
	t.Setenv("AUDIT_DB_DRIVER", "")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("MERGED_CSV", "merged.txt")
	envFile := filepath.Join(t.TempDir(), "missing.env")

	a := &app{
		envFile: envFile,
		paths:   config.PathsConfig{MergedCSV: "merged.csv"},
	}
	require.NoError(t, a.setup())
	assert.Equal(t, "merged.csv", a.cfg.Paths.MergedCSV)

	bad := &app{envFile: envFile}
	assert.Error(t, bad.setup())
}
