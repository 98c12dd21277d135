package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/repositories"
	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/desertthunder/trendrank/internal/tasks"
	tu "github.com/desertthunder/trendrank/internal/testing"
	"github.com/desertthunder/trendrank/internal/ui"
)

const rosterTOML = `
[[artists]]
group_id = "g1"
name = "Alpha"
spotify_id = "sp1"

[[artists]]
group_id = "g2"
name = "Beta"
spotify_id = "sp2"
`

func testConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Pipeline.Timezone = "UTC"
	config.Pipeline.HighlightCount = 0
	config.Database.Path = ":memory:"
	config.Credentials.Spotify.UserID = "me"
	return config
}

func newFakeCatalog(popularity map[string]int) *tu.FakeCatalog {
	fake := tu.NewFakeCatalog()
	for id, name := range map[string]string{"sp1": "Alpha", "sp2": "Beta"} {
		a := &services.SpotifyArtist{ID: id, Name: name, Popularity: popularity[id]}
		a.Followers.Total = 1000
		fake.Artists[id] = a
		fake.TopTrackSets[id] = []services.SpotifyTrack{{ID: id + "-t1", Popularity: 40, URI: "spotify:track:" + id + "-t1"}}
	}
	return fake
}

type testEnv struct {
	runner *Runner
	store  *repositories.Store
	fake   *tu.FakeCatalog
	output *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repositories.NewStore(tu.MustOpenDB(t))
	fake := newFakeCatalog(map[string]int{"sp1": 50, "sp2": 30})
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{
		Config:  testConfig(),
		Logger:  log.New(io.Discard),
		Output:  output,
		Store:   store,
		Catalog: fake,
		Editor:  fake,
	})
	return &testEnv{runner: runner, store: store, fake: fake, output: output}
}

// run executes the CLI with args and returns what was written to the runner's output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e.output.Reset()
	err := newApp(e.runner).Run(context.Background(), append([]string{"trendrank"}, args...))
	return e.output.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			fake := tu.NewFakeCatalog()

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output, Catalog: fake, Editor: fake})

			if runner.config != config || !runner.configFixed {
				t.Error("expected config to be set and fixed")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != fake || runner.editor != fake {
				t.Error("expected catalog clients to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil || runner.configFixed {
				t.Error("expected a default, replaceable config")
			}
			if runner.logger == nil || runner.recorder == nil || runner.openBrowser == nil {
				t.Error("expected default logger, recorder and browser")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("Catalog", func(t *testing.T) {
		t.Run("required without credentials", func(t *testing.T) {
			config := testConfig()
			config.Credentials.Spotify.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard)})

			if _, err := runner.Catalog(true); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected missing credentials, got %v", err)
			}
			catalog, err := runner.Catalog(false)
			if err != nil || catalog != nil {
				t.Errorf("expected nil catalog without error, got %v, %v", catalog, err)
			}
		})

		t.Run("built from credentials", func(t *testing.T) {
			config := testConfig()
			config.Credentials.Spotify.ClientSecret = "secret"
			runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard)})

			catalog, err := runner.Catalog(true)
			if err != nil || catalog == nil {
				t.Fatalf("expected a catalog client, got %v", err)
			}
			if _, ok := catalog.(*services.CatalogClient); !ok {
				t.Errorf("expected *services.CatalogClient, got %T", catalog)
			}
		})

		t.Run("editor needs refresh token", func(t *testing.T) {
			config := testConfig()
			config.Credentials.Spotify.ClientSecret = "secret"
			runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard)})

			if _, err := runner.Editor(); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected missing credentials, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("text")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("title")
			if output.String() != "\ntitle\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("summary stops after failed write", func(t *testing.T) {
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limited})

			err := runner.writeSummary(&tasks.JobResult{Job: "daily", Date: "2025-01-10", RowsWritten: 3})
			if err != nil {
				t.Fatalf("first write should succeed, got %v", err)
			}
			if err := runner.writePlain("again"); err == nil {
				t.Error("expected the second write to fail")
			}
		})
	})
}

func TestBefore(t *testing.T) {
	t.Run("Loads Config And Env", func(t *testing.T) {
		configPath := writeFile(t, "config.toml", "log_level = \"warn\"\n[database]\npath = \":memory:\"\n[pipeline]\ntimezone = \"UTC\"\n")
		envPath := writeFile(t, ".env", "WEEKLY_DEBUG_GROUP_ID=g42\n")
		t.Cleanup(func() { os.Unsetenv("WEEKLY_DEBUG_GROUP_ID") })
		t.Setenv("BATCH_SIZE", "250")

		logger := log.New(io.Discard)
		runner := NewRunner(RunnerOpts{Logger: logger, Output: &bytes.Buffer{}})
		t.Cleanup(runner.Close)

		err := newApp(runner).Run(context.Background(), []string{"trendrank", "--config", configPath, "--env-file", envPath, "roster", "list"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c := runner.config
		if c.Database.Path != ":memory:" || c.Pipeline.Timezone != "UTC" || c.Pipeline.Market != "JP" {
			t.Errorf("expected file values over defaults, got %+v", c.Pipeline)
		}
		if c.Pipeline.BatchSize != 250 || c.Pipeline.DebugGroupID != "g42" {
			t.Errorf("expected env overrides, got batch=%d debug=%q", c.Pipeline.BatchSize, c.Pipeline.DebugGroupID)
		}
		if logger.GetLevel() != log.WarnLevel {
			t.Errorf("expected warn level, got %v", logger.GetLevel())
		}
	})

	t.Run("Log Level Flag Wins", func(t *testing.T) {
		logger := log.New(io.Discard)
		runner := NewRunner(RunnerOpts{Config: testConfig(), Logger: logger, Output: &bytes.Buffer{}, Store: repositories.NewStore(tu.MustOpenDB(t))})

		if err := newApp(runner).Run(context.Background(), []string{"trendrank", "--log-level", "debug", "roster", "list"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})

	t.Run("Invalid Config", func(t *testing.T) {
		config := testConfig()
		config.Pipeline.BatchSize = 0
		runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		err := newApp(runner).Run(context.Background(), []string{"trendrank", "roster", "list"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected invalid config, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("Init Creates Config", func(t *testing.T) {
		env := newTestEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.toml")

		out := env.mustRun(t, "--config", configPath, "init")
		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("expected config file: %v", err)
		}
		if !strings.Contains(out, "Config written") || !strings.Contains(out, "Database ready") {
			t.Errorf("unexpected output %q", out)
		}

		out = env.mustRun(t, "--config", configPath, "init")
		if strings.Contains(out, "Config written") {
			t.Error("expected existing config to be left alone")
		}
	})

	t.Run("Migrate", func(t *testing.T) {
		env := newTestEnv(t)

		if out := env.mustRun(t, "migrate"); !strings.Contains(out, "Migrations applied") {
			t.Errorf("unexpected output %q", out)
		}
		if out := env.mustRun(t, "migrate", "--down"); !strings.Contains(out, "Rolled back") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Roster Import And List", func(t *testing.T) {
		env := newTestEnv(t)
		path := writeFile(t, "roster.toml", rosterTOML)

		if out := env.mustRun(t, "roster", "import", "--file", path); !strings.Contains(out, "Registered 2 artists") {
			t.Errorf("unexpected output %q", out)
		}

		out := env.mustRun(t, "roster", "list", "--format", "csv")
		if out != "Group,Name,Spotify ID\ng1,Alpha,sp1\ng2,Beta,sp2\n" {
			t.Errorf("unexpected roster %q", out)
		}
	})

	t.Run("Roster Import Rejects Bad File", func(t *testing.T) {
		env := newTestEnv(t)
		path := writeFile(t, "roster.toml", "[[artists]]\nname = \"nobody\"\n")

		if _, err := env.run(t, "roster", "import", "--file", path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})
}

func TestJobCommands(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "roster", "import", "--file", writeFile(t, "roster.toml", rosterTOML))

	t.Run("Snapshot", func(t *testing.T) {
		out := env.mustRun(t, "snapshot", "--date", "2025-01-09")
		if !strings.Contains(out, "snapshot 2025-01-09: 2 rows written") {
			t.Errorf("unexpected output %q", out)
		}

		env.fake.Artists["sp2"].Popularity = 45
		env.mustRun(t, "snapshot", "--date", "2025-01-10")
	})

	t.Run("Daily", func(t *testing.T) {
		out := env.mustRun(t, "rank", "--date", "2025-01-10")
		if !strings.Contains(out, "daily 2025-01-10: 5 rows written") {
			t.Errorf("unexpected output %q", out)
		}

		out = env.mustRun(t, "show", "daily", "--format", "csv")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 || !strings.HasPrefix(lines[1], "1,NEW,Beta,") {
			t.Errorf("expected Beta first, got %q", out)
		}
	})

	t.Run("Missing Snapshots Abort", func(t *testing.T) {
		_, err := env.run(t, "daily", "--date", "2025-02-01")
		if !errors.Is(err, shared.ErrNoSnapshotData) || !tasks.IsFatal(err) {
			t.Errorf("expected fatal missing data, got %v", err)
		}
	})

	t.Run("Invalid Date", func(t *testing.T) {
		if _, err := env.run(t, "daily", "--date", "2025-13-01"); !errors.Is(err, shared.ErrInvalidDate) {
			t.Errorf("expected invalid date, got %v", err)
		}
	})

	t.Run("Weekly", func(t *testing.T) {
		out := env.mustRun(t, "weekly", "--date", "2025-01-10")
		if !strings.Contains(out, "weekly 2025-01-10: 2 rows written") {
			t.Errorf("unexpected output %q", out)
		}

		out = env.mustRun(t, "show", "weekly", "--format", "json", "--limit", "1")
		var entries []models.WeeklyRankingEntry
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(entries) != 1 || entries[0].GroupID != "g2" {
			t.Errorf("unexpected weekly top %+v", entries)
		}
	})

	t.Run("Playlist", func(t *testing.T) {
		out := env.mustRun(t, "playlist")
		if !strings.Contains(out, "https://open.spotify.com/playlist/pl1") {
			t.Errorf("unexpected output %q", out)
		}
		if got := env.fake.Items["pl1"]; len(got) != 2 || got[0] != "spotify:track:sp2-t1" {
			t.Errorf("unexpected playlist tracks %v", got)
		}
	})

	t.Run("Show Boards", func(t *testing.T) {
		for _, args := range [][]string{
			{"show", "cumulative", "--format", "markdown"},
			{"show", "stats"},
			{"show", "highlights", "--format", "json"},
			{"show", "runs", "--job", "daily"},
		} {
			if _, err := env.run(t, args...); err != nil {
				t.Errorf("%v failed: %v", args, err)
			}
		}

		out := env.mustRun(t, "show", "runs", "--format", "csv", "--job", "daily")
		if !strings.Contains(out, "failed") || !strings.Contains(out, "succeeded") {
			t.Errorf("expected both run outcomes, got %q", out)
		}
	})

	t.Run("Show Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "daily.md")
		out := env.mustRun(t, "show", "daily", "--format", "md", "--output", path)
		if !strings.Contains(out, path) {
			t.Errorf("unexpected output %q", out)
		}
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "# Daily ranking 2025-01-10") {
			t.Errorf("unexpected file %q", content)
		}
	})

	t.Run("Show Bad Format", func(t *testing.T) {
		if _, err := env.run(t, "show", "daily", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("Board Loader", func(t *testing.T) {
		load := boardLoader(env.store)
		board, err := load(context.Background(), ui.CumulativeBoard, "2025-01-10")
		if err != nil || len(board.Rows) != 2 {
			t.Errorf("unexpected board %+v, %v", board, err)
		}
		if _, err := load(context.Background(), ui.BoardKind(9), "2025-01-10"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("Latest Dates", func(t *testing.T) {
		dates, err := env.runner.latestDates(context.Background(), env.store, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dates[boardDaily] != "2025-01-10" || dates[boardWeekly] != "2025-01-10" {
			t.Errorf("unexpected dates %v", dates)
		}
	})
}

func TestShowEmptyStore(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "show", "daily"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := env.run(t, "show", "stats", "--date", "2025-01-10"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	dates, err := env.runner.latestDates(context.Background(), env.store, "")
	if err != nil || dates[boardDaily] == "" {
		t.Errorf("expected today as fallback, got %v, %v", dates, err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestAuth(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("code_verifier") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"access","refresh_token":"refresh-123","token_type":"Bearer","expires_in":3600,"scope":"playlist-read-private playlist-modify-private"}`)
	}))
	t.Cleanup(tokenSrv.Close)

	newAuthEnv := func(t *testing.T, browser func(string) error) (*Runner, *bytes.Buffer) {
		config := testConfig()
		config.Credentials.Spotify.ClientSecret = "secret"
		config.Catalog.TokenURL = tokenSrv.URL
		config.Server.Host = "127.0.0.1"
		config.Server.Port = freePort(t)

		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: output, Browser: browser}), output
	}

	t.Run("Prints Refresh Token", func(t *testing.T) {
		var runner *Runner
		browser := func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			q := u.Query()
			if q.Get("code_challenge_method") != "S256" {
				t.Errorf("expected PKCE challenge, got %v", q)
			}
			callback := url.URL{
				Scheme:   "http",
				Host:     net.JoinHostPort(runner.config.Server.Host, strconv.Itoa(runner.config.Server.Port)),
				Path:     "/callback",
				RawQuery: url.Values{"state": {q.Get("state")}, "code": {"abc"}}.Encode(),
			}
			go func() {
				resp, err := http.Get(callback.String())
				if err != nil {
					t.Errorf("callback failed: %v", err)
					return
				}
				resp.Body.Close()
			}()
			return nil
		}

		var output *bytes.Buffer
		runner, output = newAuthEnv(t, browser)

		if err := newApp(runner).Run(context.Background(), []string{"trendrank", "auth", "--timeout", "5s"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "SPOTIFY_REFRESH_TOKEN=refresh-123") {
			t.Errorf("missing refresh token in %q", output.String())
		}
		if !strings.Contains(output.String(), "playlist-read-private, playlist-modify-private") {
			t.Errorf("missing scopes in %q", output.String())
		}
	})

	t.Run("Times Out", func(t *testing.T) {
		runner, output := newAuthEnv(t, func(string) error { return errors.New("no browser") })

		start := time.Now()
		err := newApp(runner).Run(context.Background(), []string{"trendrank", "auth", "--timeout", "50ms"})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("expected the timeout to be honored")
		}
		if !strings.Contains(output.String(), "/authorize?") {
			t.Errorf("expected the URL to be printed when the browser fails, got %q", output.String())
		}
	})

	t.Run("Requires Credentials", func(t *testing.T) {
		runner, _ := newAuthEnv(t, nil)
		runner.config.Credentials.Spotify.ClientSecret = ""

		if err := newApp(runner).Run(context.Background(), []string{"trendrank", "auth"}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}
