package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abcy/internal/service"
	"abcy/internal/store"
)

type testEnv struct {
	configPath string
	dataDir    string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	t.Setenv("ABCY_DATA_DIR", "")
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
[storage]
data_dir = %q

[log]
level = "error"
format = "json"
`, dataDir)), 0600))
	return testEnv{configPath: configPath, dataDir: dataDir}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e testEnv) seed(t *testing.T, id int64, startDate string, distance float64) {
	t.Helper()
	st, err := store.Open(e.dataDir)
	require.NoError(t, err)
	defer st.Close()

	meta := fmt.Sprintf(`{"id":%d,"name":"ride %d","type":"Ride","start_date":%q,"distance":%v,"elapsed_time":3600}`,
		id, id, startDate, distance)
	_, err = service.New(st).Save(context.Background(), []byte(meta), []byte(`{"time":{"data":[0,1,2]},"watts":{"data":[200,200,200]}}`))
	require.NoError(t, err)
}

func TestLedgerCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "ftp")
	require.NoError(t, err)
	assert.Equal(t, "ftp: 240.00\n", out, "empty ledger seeds the default")

	out, err = env.run(t, "ftp", "280")
	require.NoError(t, err)
	assert.Equal(t, "ftp: 280.00\n", out)

	_, err = env.run(t, "weight", "70")
	require.NoError(t, err)

	out, err = env.run(t, "wkg")
	require.NoError(t, err)
	assert.Equal(t, "wkg: 4.00\n", out)

	out, err = env.run(t, "ftp", "--history", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "280.00")
}

func TestLedgerCommandRejectsInvalidValues(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "ftp", "abc")
	assert.Error(t, err)

	_, err = env.run(t, "weight", "0")
	assert.ErrorIs(t, err, service.ErrInvalidValue)

	_, err = env.run(t, "wkg", "4")
	assert.Error(t, err, "wkg takes no value")
}

func TestScoresCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "scores", "--update", "--chart")
	require.NoError(t, err)
	assert.Contains(t, out, "enduro")
	assert.Contains(t, out, "fitness")
	assert.Contains(t, out, "not enough history")
}

func TestStatsAndSummaryCommands(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 7, "2024-03-02T08:00:00Z", 42000)
	env.seed(t, 8, "2023-06-01T08:00:00Z", 10000)

	out, err := env.run(t, "stats", "--period", "year")
	require.NoError(t, err)
	assert.Contains(t, out, "2024")
	assert.Contains(t, out, "2023")
	assert.Contains(t, out, "42 km")

	out, err = env.run(t, "stats", "--period", "month", "--ids", "7", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"period": "2024-03"`)
	assert.NotContains(t, out, "2023")

	_, err = env.run(t, "stats", "--period", "fortnight")
	assert.Error(t, err)

	out, err = env.run(t, "summary", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": 7`)
	assert.Contains(t, out, `"normalized_power"`)

	_, err = env.run(t, "summary", "99")
	assert.ErrorIs(t, err, store.ErrActivityNotFound)
}

func TestTrendCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "trend")
	require.NoError(t, err)
	assert.Contains(t, out, "avg_speed  normal")
	assert.Contains(t, out, "power      normal")
}

func TestSyncRequiresCredentials(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "sync")
	assert.ErrorContains(t, err, "client_id")
}

func TestImportFitRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "ride.fit")
	require.NoError(t, os.WriteFile(path, []byte("not a fit file"), 0600))

	_, err := env.run(t, "import-fit", path)
	assert.ErrorContains(t, err, "decoding")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", " 2 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	_, err = parseIDs([]string{"x"})
	assert.Error(t, err)
}
