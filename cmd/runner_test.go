package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/services"
	"github.com/desertthunder/ytcat/internal/shared"
	tu "github.com/desertthunder/ytcat/internal/testing"
	"google.golang.org/api/youtube/v3"
)

type harness struct {
	runner *Runner
	output *bytes.Buffer
	tokens *tu.FakeTokenServer
	api    *tu.FakeYouTube
	config string
}

// newHarness wires a Runner to an in-memory database, a fake token endpoint and a fake YouTube API.
// Consent is granted immediately with code "c1".
func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens := tu.NewFakeTokenServer(t)
	api := tu.NewFakeYouTube(t)
	api.AddPlaylists(
		tu.MakePlaylist("PL1", "Easy pizza recipes", "weeknight cooking", 2),
		tu.MakePlaylist("PL2", "xyz123", "", 0),
	)
	api.AddItems("PL1", tu.MakeItems(2)...)
	api.AddItems("PL2")

	config := shared.DefaultConfig()
	config.Fetch.Endpoint = api.Endpoint()
	config.Fetch.MaxAttempts = 1
	config.Fetch.InitialBackoff = time.Millisecond
	config.Fetch.MaxBackoff = time.Millisecond
	config.Fetch.RequestsPerSecond = 1000
	config.Fetch.Burst = 10

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
		DB:     tu.SetupTestDB(t),
		OAuth:  tokens.Config(services.ReadOnlyScopes...),
		Consent: func(ctx context.Context, consent *services.Consent) (services.Callback, error) {
			return services.Callback{State: consent.State, Code: "c1"}, nil
		},
	})

	return &harness{
		runner: runner,
		output: output,
		tokens: tokens,
		api:    api,
		config: filepath.Join(t.TempDir(), "config.toml"),
	}
}

// run executes the CLI with args after the program name and --config, returning the output of this run only.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	h.output.Reset()
	argv := append([]string{"ytcat", "--config", h.config}, args...)
	err := h.runner.app().Run(context.Background(), argv)
	return h.output.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.mustRun(t, "auth", "login")
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:      config,
				ConfigPath:  "/test/path/config.toml",
				Logger:      logger,
				Output:      output,
				Interactive: true,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if !runner.interactive {
				t.Error("expected interactive to be set")
			}
			if runner.organizer != nil {
				t.Error("expected the pipeline to be built lazily")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.metrics == nil {
				t.Error("expected metrics to be created")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"a": 1}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"a\":1}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("returns error for unmarshalable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("returns error when newline write fails", func(t *testing.T) {
			w := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &w})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlain("%d playlists\n", 3)
			runner.writePlainln("Next steps:")
			if output.String() != "3 playlists\n\nNext steps:\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("x"); err == nil {
				t.Error("expected error")
			}
			if err := runner.writePlainln("x"); err == nil {
				t.Error("expected error")
			}
		})

		t.Run("header frames the title", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainHeader("Categories")
			lines := strings.Split(strings.TrimSpace(output.String()), "\n")
			if len(lines) != 3 || lines[1] != "Categories" || !strings.HasPrefix(lines[0], "═") {
				t.Errorf("unexpected header %q", output.String())
			}
		})
	})
}

func TestConfigure(t *testing.T) {
	t.Run("loads the config file", func(t *testing.T) {
		h := newHarness(t)
		if err := os.WriteFile(h.config, []byte("[fetch]\nmax_playlists = 7\n\n[log]\nlevel = \"warn\"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		h.mustRun(t, "category", "list")
		if h.runner.config.Fetch.MaxPlaylists != 7 {
			t.Errorf("expected max_playlists 7, got %d", h.runner.config.Fetch.MaxPlaylists)
		}
		if h.runner.config.Fetch.MaxVideos != 50 {
			t.Errorf("expected defaults for missing keys, got %d", h.runner.config.Fetch.MaxVideos)
		}
	})

	t.Run("missing file keeps the current config", func(t *testing.T) {
		h := newHarness(t)
		endpoint := h.runner.config.Fetch.Endpoint

		h.mustRun(t, "category", "list")
		if h.runner.config.Fetch.Endpoint != endpoint {
			t.Error("expected the injected config to survive")
		}
	})

	t.Run("invalid file fails", func(t *testing.T) {
		h := newHarness(t)
		os.WriteFile(h.config, []byte("[fetch\n"), 0644)

		if _, err := h.run(t, "category", "list"); err == nil || !strings.Contains(err.Error(), "failed to parse config") {
			t.Errorf("expected a parse error, got %v", err)
		}
	})

	t.Run("invalid settings are rejected before use", func(t *testing.T) {
		h := newHarness(t)
		h.runner.config.Fetch.MaxAttempts = 0

		if _, err := h.run(t, "auth", "status"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config writes the template once", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "setup", "config")
		tu.AssertFileExists(t, h.config)
		if !strings.Contains(out, "Next steps:") {
			t.Errorf("unexpected output %q", out)
		}
		if !strings.Contains(tu.MustReadFile(t, h.config), "[credentials.youtube]") {
			t.Error("expected the template contents")
		}

		if _, err := h.run(t, "setup", "config"); err == nil {
			t.Error("expected an error for an existing file")
		}
	})

	t.Run("database migrates and rolls back", func(t *testing.T) {
		output := &bytes.Buffer{}
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "ytcat.db")
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard), Output: output})
		defer runner.Close()

		missing := filepath.Join(t.TempDir(), "none.toml")
		if err := runner.app().Run(context.Background(), []string{"ytcat", "--config", missing, "setup", "database"}); err != nil {
			t.Fatal(err)
		}
		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}

		_, applied, err := shared.MigrationVersion(runner.db)
		if err != nil || applied == 0 {
			t.Fatalf("expected applied migrations, got %d (%v)", applied, err)
		}

		output.Reset()
		if err := runner.app().Run(context.Background(), []string{"ytcat", "--config", missing, "setup", "rollback"}); err != nil {
			t.Fatal(err)
		}
		if _, after, _ := shared.MigrationVersion(runner.db); after != applied-1 {
			t.Errorf("expected %d migrations after rollback, got %d", applied-1, after)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status before login", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "auth", "status")
		if !strings.Contains(out, "Not authenticated") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("login stores the credential and shows the channel", func(t *testing.T) {
		h := newHarness(t)
		h.api.SetChannel(&youtube.Channel{
			Id:         "UC1",
			Snippet:    &youtube.ChannelSnippet{Title: "Pizza Lab"},
			Statistics: &youtube.ChannelStatistics{SubscriberCount: 1200},
		})

		out := h.mustRun(t, "auth", "login")
		if !strings.Contains(out, "Authentication successful") || !strings.Contains(out, "Pizza Lab (UC1)") {
			t.Errorf("unexpected output %q", out)
		}
		if grants := h.tokens.Grants(); len(grants) != 1 || grants[0] != "authorization_code" {
			t.Errorf("expected one code exchange, got %v", grants)
		}

		out = h.mustRun(t, "--json", "auth", "status")
		var status map[string]any
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if status["authenticated"] != true || status["has_refresh_token"] != true {
			t.Errorf("unexpected status %v", status)
		}
	})

	t.Run("login without a channel", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "auth", "login")
		if !strings.Contains(out, "no YouTube channel") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("denied consent fails", func(t *testing.T) {
		h := newHarness(t)
		h.runner.consent = func(ctx context.Context, consent *services.Consent) (services.Callback, error) {
			return services.Callback{State: consent.State, Error: "access_denied"}, nil
		}

		if _, err := h.run(t, "auth", "login"); !errors.Is(err, shared.ErrConsentDenied) {
			t.Errorf("expected ErrConsentDenied, got %v", err)
		}
		if out := h.mustRun(t, "auth", "status"); !strings.Contains(out, "Not authenticated") {
			t.Errorf("expected no credential, got %q", out)
		}
	})

	t.Run("logout forgets the credential", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		if out := h.mustRun(t, "auth", "logout"); !strings.Contains(out, "Signed out") {
			t.Errorf("unexpected output %q", out)
		}
		if out := h.mustRun(t, "auth", "status"); !strings.Contains(out, "Not authenticated") {
			t.Errorf("expected no credential, got %q", out)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		h := newHarness(t)

		if _, err := h.run(t, "playlists", "list"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("list categorizes playlists", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out := h.mustRun(t, "playlists", "list")
		for _, want := range []string{"Easy pizza recipes", "Food", "xyz123", "Other", "2 playlists"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}

		out = h.mustRun(t, "--json", "playlists", "list")
		var lib models.Library
		if err := json.Unmarshal([]byte(out), &lib); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(lib.UserPlaylists) != 2 || lib.UserPlaylists[0].CategorySource != models.SourceAutomatic {
			t.Errorf("unexpected library %+v", lib.UserPlaylists)
		}
	})

	t.Run("list filters by category", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out := h.mustRun(t, "--json", "playlists", "list", "--category", "food")
		var lib models.Library
		json.Unmarshal([]byte(out), &lib)
		if len(lib.UserPlaylists) != 1 || lib.UserPlaylists[0].ID != "PL1" {
			t.Errorf("expected only PL1, got %+v", lib.UserPlaylists)
		}
		if len(lib.Summary) != 1 || lib.Summary[0].Category != "Food" {
			t.Errorf("expected a Food-only summary, got %+v", lib.Summary)
		}

		if _, err := h.run(t, "playlists", "list", "--category", "Gardening"); !errors.Is(err, shared.ErrInvalidCategory) {
			t.Errorf("expected ErrInvalidCategory, got %v", err)
		}
	})

	t.Run("list as csv and markdown", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out := h.mustRun(t, "playlists", "list", "--format", "csv")
		if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
			t.Errorf("expected a header and 2 rows, got %q", out)
		}

		out = h.mustRun(t, "playlists", "list", "--format", "markdown")
		if !strings.Contains(out, "## Food") || !strings.Contains(out, "## Other") {
			t.Errorf("unexpected markdown %q", out)
		}

		if _, err := h.run(t, "playlists", "list", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("videos in playlist order", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out := h.mustRun(t, "--json", "playlists", "videos", "--id", "PL1")
		var videos []models.Video
		if err := json.Unmarshal([]byte(out), &videos); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(videos) != 2 || videos[0].Position != 0 || videos[1].Position != 1 {
			t.Errorf("unexpected videos %+v", videos)
		}

		out = h.mustRun(t, "playlists", "videos", "--id", "PL2")
		if !strings.Contains(out, "is empty") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("quota errors surface", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.api.Fail(tu.Playlists, tu.QuotaFault)

		if _, err := h.run(t, "playlists", "list"); !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("summary and review", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out := h.mustRun(t, "playlists", "summary")
		if !strings.Contains(out, "Category summary") || !strings.Contains(out, "Food") {
			t.Errorf("unexpected summary %q", out)
		}

		out = h.mustRun(t, "playlists", "review")
		if !strings.Contains(out, "xyz123") || !strings.Contains(out, "no keywords matched") {
			t.Errorf("expected the uncategorized playlist to be flagged:\n%s", out)
		}
	})

	t.Run("export writes a manifest", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		dir := filepath.Join(t.TempDir(), "export")

		out := h.mustRun(t, "playlists", "export", "--output", dir, "--workers", "2")
		if !strings.Contains(out, "Exported: 2/2 playlists") {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

		if _, err := h.run(t, "playlists", "export", "--format", "pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestCategoryCommands(t *testing.T) {
	t.Run("list shows the taxonomy in order", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "category", "list")
		food, travel, other := strings.Index(out, "1. Food"), strings.Index(out, "Travel"), strings.Index(out, "10. Other")
		if food < 0 || travel < food || other < travel {
			t.Errorf("unexpected order:\n%s", out)
		}
	})

	t.Run("set overrides and clear restores", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out := h.mustRun(t, "category", "set", "--id", "PL2", "--category", "travel")
		if !strings.Contains(out, "PL2 is now Travel (manual)") {
			t.Errorf("unexpected output %q", out)
		}

		var lib models.Library
		json.Unmarshal([]byte(h.mustRun(t, "--json", "playlists", "list")), &lib)
		if p, _ := lib.Playlist("PL2"); p.Category != "Travel" || p.CategorySource != models.SourceManual {
			t.Errorf("expected the override, got %+v", p)
		}

		if out := h.mustRun(t, "category", "overrides"); !strings.Contains(out, "PL2") {
			t.Errorf("expected the override to be listed, got %q", out)
		}

		if out := h.mustRun(t, "category", "clear", "--id", "PL2"); !strings.Contains(out, "categorized automatically") {
			t.Errorf("unexpected output %q", out)
		}
		json.Unmarshal([]byte(h.mustRun(t, "--json", "playlists", "list")), &lib)
		if p, _ := lib.Playlist("PL2"); p.Category != "Other" || p.CategorySource != models.SourceAutomatic {
			t.Errorf("expected the automatic category, got %+v", p)
		}

		if out := h.mustRun(t, "category", "clear", "--id", "PL2"); !strings.Contains(out, "has no manual category") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("set rejects unknown categories", func(t *testing.T) {
		h := newHarness(t)

		if _, err := h.run(t, "category", "set", "--id", "PL1", "--category", "Gardening"); !errors.Is(err, shared.ErrInvalidCategory) {
			t.Errorf("expected ErrInvalidCategory, got %v", err)
		}
	})

	t.Run("set without a category outside a terminal", func(t *testing.T) {
		h := newHarness(t)

		if _, err := h.run(t, "category", "set", "--id", "PL1"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
