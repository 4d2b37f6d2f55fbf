package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/castdeck/internal/auth"
	"github.com/llehouerou/castdeck/internal/episode"
	"github.com/llehouerou/castdeck/internal/store"
	"github.com/llehouerou/castdeck/internal/tts"
)

type cliEnv struct {
	dir    string
	config string
	dbPath string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := cliEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		dbPath: filepath.Join(dir, "castdeck.db"),
	}
	cfg := fmt.Sprintf(`
[database]
path = %q

[storage]
dir = %q
base_url = "http://localhost:9999/"

[tts]
provider = "mock"

[log]
level = "debug"
file = %q
`, env.dbPath, filepath.Join(dir, "audio"), filepath.Join(dir, "castdeck.log"))
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	return env
}

func (e cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&runtime{log: logrus.New()})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSynth_WritesAudio(t *testing.T) {
	env := newCLIEnv(t)
	out := filepath.Join(env.dir, "hello.wav")

	stdout, err := env.run(t, "", "synth", "one two three four", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Contains(t, stdout, "Wrote "+out)
	assert.Contains(t, stdout, "1.2s")
}

func TestSynth_ReadsStdin(t *testing.T) {
	env := newCLIEnv(t)
	out := filepath.Join(env.dir, "stdin.wav")

	_, err := env.run(t, "  from standard input  \n", "synth", "-o", out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestSynth_EmptyInput(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "   ", "synth")
	assert.ErrorIs(t, err, tts.ErrEmptyText)
}

func TestEpisodes_GenerateAndList(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	st, err := store.Open(env.dbPath)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(ctx, auth.User{
		ID:           "u1",
		Email:        "ada@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}))
	ep, err := st.Create(ctx, "u1", episode.Draft{Title: "Pilot", Script: "hello there listeners"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, err := env.run(t, "", "episodes", "generate", ep.ID, "--user", "Ada@Example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Published "Pilot"`)
	assert.Contains(t, stdout, "http://localhost:9999/api/audio/"+ep.ID)

	stdout, err = env.run(t, "", "episodes", "list", "-u", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pilot")
	assert.Contains(t, stdout, "PUBLISHED")
	assert.Contains(t, stdout, "0:01")

	logData, err := os.ReadFile(filepath.Join(env.dir, "castdeck.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "studio ready")
}

func TestEpisodes_GenerateForceRecoversStuckEpisode(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	st, err := store.Open(env.dbPath)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(ctx, auth.User{ID: "u1", Email: "ada@example.com", PasswordHash: "x", CreatedAt: time.Now()}))
	ep, err := st.Create(ctx, "u1", episode.Draft{Title: "Stuck", Script: "hello there"})
	require.NoError(t, err)
	require.NoError(t, st.SetStatus(ctx, ep.ID, episode.StatusProcessing))
	require.NoError(t, st.Close())

	_, err = env.run(t, "", "episodes", "generate", ep.ID, "-u", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")

	stdout, err := env.run(t, "", "episodes", "generate", ep.ID, "-u", "ada@example.com", "--force")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Published "Stuck"`)
}

func TestEpisodes_UnknownUser(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "episodes", "list", "--user", "nobody@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to load episode 'nobody@example.com'")
}

func TestPlay_RequiresSource(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "play")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to play")
}

func TestPlay_EpisodeWithoutAudio(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	st, err := store.Open(env.dbPath)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(ctx, auth.User{ID: "u1", Email: "ada@example.com", PasswordHash: "x", CreatedAt: time.Now()}))
	ep, err := st.Create(ctx, "u1", episode.Draft{Title: "Draft only", Script: "text"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = env.run(t, "", "play", "--episode", ep.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no audio")
}
