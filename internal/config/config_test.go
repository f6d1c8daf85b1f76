package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "sid", cfg.SessionCookie)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, "5.99", cfg.ShippingFee.StringFixed(2))
	assert.Equal(t, "0.1", cfg.TaxRate.String())
	assert.Equal(t, "LKR", cfg.PayHere.Currency)
	assert.Equal(t, "local", cfg.Storage.Driver)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("SESSION_TIMEOUT", "45m")
	t.Setenv("CHECKOUT_TAX_RATE", "0.08")

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, 45*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, "0.08", cfg.TaxRate.String())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("DB_DRIVER: postgres\nPAYHERE_CURRENCY: USD\n"), 0o600))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "USD", cfg.PayHere.Currency)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "soon")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("SESSION_TIMEOUT", "30m")
	t.Setenv("CHECKOUT_SHIPPING_FEE", "-1")
	_, err = Load("")
	assert.Error(t, err)
}
