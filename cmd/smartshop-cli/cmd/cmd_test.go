package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/nfrund/smartshop/cmd/smartshop-cli/internal/output"
	"github.com/nfrund/smartshop/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	originalConfig := loadConfig
	t.Cleanup(func() {
		loadConfig = originalConfig
		planCoins, planSteps, planScript, planJSON = 50000, 5, "", false
		pricePrice, priceStock, priceQty, priceScript = 0, 0, 1, ""
		topicsFormat = "table"
	})
	loadConfig = func() *config.Config {
		return &config.Config{
			StoreDriver:   config.DriverMemory,
			AdminEmail:    "admin@smartshop.com",
			AdminPassword: "adminpassword",
			PlanSteps:     5,
		}
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "SmartShop CLI v"+version+"\n", out)
}

func TestSeed(t *testing.T) {
	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin created: true")
	assert.Contains(t, out, "Products created: 5")
}

func TestPlan_JSON(t *testing.T) {
	out, err := run(t, "plan", "--coins", "50000", "--json")
	require.NoError(t, err)

	var plan output.PlanDisplay
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan.Steps, 5)
	assert.Equal(t, 150, plan.TotalPoints)
	assert.Equal(t, "DSA Book", plan.Steps[0].ProductName)
}

func TestPlan_Table(t *testing.T) {
	out, err := run(t, "plan", "--coins", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "Nothing affordable")
}

func TestPlan_RejectsBadFlags(t *testing.T) {
	_, err := run(t, "plan", "--steps", "0")
	assert.Error(t, err)
}

func TestPrice(t *testing.T) {
	t.Run("demand rule", func(t *testing.T) {
		out, err := run(t, "price", "--price", "4000", "--stock", "20")
		require.NoError(t, err)
		assert.Equal(t, "4,000.00 -> 4,200.00\n", out)
	})

	t.Run("script", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/rules/flat.tengo", []byte(`new_price := price + qty * 10`), 0o644))
		original := cliFs
		cliFs = fs
		t.Cleanup(func() { cliFs = original })

		out, err := run(t, "price", "--price", "4000", "--stock", "20", "--qty", "2", "--script", "/rules/flat.tengo")
		require.NoError(t, err)
		assert.Equal(t, "4,000.00 -> 4,020.00\n", out)
	})

	t.Run("missing script", func(t *testing.T) {
		original := cliFs
		cliFs = afero.NewMemMapFs()
		t.Cleanup(func() { cliFs = original })

		_, err := run(t, "price", "--price", "4000", "--stock", "20", "--script", "/rules/missing.tengo")
		assert.Error(t, err)
	})
}

func TestTopics(t *testing.T) {
	out, err := run(t, "topics", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"topics":["market.purchase","market.price","market.recommendation"],"count":3}`, out)
}
