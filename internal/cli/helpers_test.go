package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubfridge/internal/config"
	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/store"
)

const (
	memberKeycode = "0005635570"
	colaBarcode   = "3800235265659"
)

// testEnv is a scratch directory with a config file pointing at its own
// database.
type testEnv struct {
	dir    string
	db     string
	config string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	for _, key := range []string{config.EnvConfig, config.EnvDatabase, config.EnvOffline, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		db:     filepath.Join(dir, "clubfridge.db"),
		config: filepath.Join(dir, "clubfridge.yaml"),
	}
	content := "database: " + env.db + "\n" +
		"log:\n  file: \"\"\n" +
		"update:\n  enabled: false\n" +
		extraConfig
	require.NoError(t, os.WriteFile(env.config, []byte(content), 0o644))
	return env
}

// openStore opens the environment's database and closes it with the test.
func (e *testEnv) openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(e.db)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// seedCatalog writes one member and one article priced for any date.
func (e *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	st, err := store.Open(e.db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.ReplaceMembers(ctx, []model.Member{{Keycode: memberKeycode, ID: "11011", FirstName: "Tobias", LastName: "Tester"}})
	require.NoError(t, err)
	_, err = st.ReplaceArticles(ctx, []model.Article{{
		ID:          colaBarcode,
		Designation: "Cola Mix",
		Prices: []model.Price{{
			ValidFrom: model.NewDate(2000, 1, 1),
			ValidTo:   model.NewDate(2999, 12, 31),
			UnitPrice: decimal.RequireFromString("0.90"),
		}},
	}})
	require.NoError(t, err)
}

// execute runs the root command with args, feeding stdin, and returns
// stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
