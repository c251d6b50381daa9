package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubfridge/internal/config"
	"github.com/roach88/clubfridge/internal/selfupdate"
	"github.com/roach88/clubfridge/internal/session"
)

func TestRunHeadlessOfflineCheckout(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCatalog(t)

	script := memberKeycode + "\n" + colaBarcode + "\n" + colaBarcode + "\n:pay\n:quit\n"
	stdout, _, err := execute(t, script, "run", "--headless", "--offline", "--config", env.config)
	require.NoError(t, err)

	assert.Contains(t, stdout, "phase: running")
	assert.Contains(t, stdout, "cart: Tobias Tester, 1 lines, total 1.80")
	assert.Contains(t, stdout, "notice: Thank you for your purchase")

	sales, err := env.openStore(t).LoadSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "11011", sales[0].MemberID)
	assert.Equal(t, colaBarcode, sales[0].ArticleID)
	assert.Equal(t, 2, sales[0].Amount)
}

func TestRunHeadlessUnknownMember(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCatalog(t)

	stdout, _, err := execute(t, "0000000001\n", "run", "--headless", "--offline", "--config", env.config)
	require.NoError(t, err)
	assert.Contains(t, stdout, fmt.Sprintf("notice: "+session.NoticeMemberNotFound, "0000000001"))
}

func TestRunHeadlessStartupFailure(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := execute(t, "", "run", "--headless", "--offline", "--config", env.config, "--db", filepath.Join(env.dir, "missing", "clubfridge.db"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestExitErrorMapping(t *testing.T) {
	assert.NoError(t, exitError(nil))
	assert.NoError(t, exitError(context.Canceled))
	assert.Equal(t, ExitRestart, GetExitCode(exitError(fmt.Errorf("run: %w", session.ErrRestartRequested))))
	assert.Equal(t, ExitFailure, GetExitCode(exitError(errors.New("boom"))))
}

func TestNewChecker(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &selfupdate.GitHubChecker{}, newChecker(cfg, "v1.0.0"))

	cfg.Offline = true
	assert.Equal(t, selfupdate.Disabled{}, newChecker(cfg, "v1.0.0"))

	cfg = config.Default()
	cfg.Update.Enabled = false
	assert.Equal(t, selfupdate.Disabled{}, newChecker(cfg, "v1.0.0"))
}

func TestCurrentVersion(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, Version, currentVersion(cfg))

	cfg.Update.CurrentVersion = "v2.0.0"
	assert.Equal(t, "v2.0.0", currentVersion(cfg))
}
