package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "markets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMarketSeed(t *testing.T) {
	path := writeSeed(t, `
markets:
  - market_code: MKE
    market_name: Milwaukee
    state: WI
    state_full: Wisconsin
    parcel_id_type: Tax Key Number
    parcel_id_format: 999-9999-999
  - market_code: CHI
    market_name: Chicago
    state: IL
    state_full: Illinois
    parcel_id_type: PIN
`)

	markets, err := loadMarketSeed(path)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "MKE", markets[0].MarketCode)
	assert.Equal(t, "Tax Key Number", markets[0].ParcelIDType)
}

func TestLoadMarketSeedErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadMarketSeed(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := loadMarketSeed(writeSeed(t, "markets: []\n"))
		assert.ErrorContains(t, err, "no markets")
	})

	t.Run("missing state", func(t *testing.T) {
		_, err := loadMarketSeed(writeSeed(t, "markets:\n  - market_code: MKE\n"))
		assert.ErrorContains(t, err, "missing market_code or state")
	})
}
