package reload_test

import (
	"context"
	"testing"

	"feedmirror/internal/filtering"
	"feedmirror/internal/logging"
	"feedmirror/internal/reload"
	"feedmirror/internal/testsupport"
)

func TestTickWithoutFlagDoesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	engine := filtering.NewEngine(nil)
	watcher := reload.New(cfg, st, engine, logging.NewNop())

	watcher.Tick(context.Background())

	if engine.Current().Channels.Size() != 0 {
		t.Fatal("no reload was requested; engine must stay empty")
	}
}

func TestTickReloadsAndClearsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	engine := filtering.NewEngine(nil)
	watcher := reload.New(cfg, st, engine, logging.NewNop())

	ctx := context.Background()
	if err := st.AddWhitelistEntry(ctx, "@news"); err != nil {
		t.Fatalf("AddWhitelistEntry failed: %v", err)
	}

	watcher.Tick(ctx)

	if !engine.Current().Channels.IsAllowed(0, "news") {
		t.Fatal("reloaded snapshot should include the new whitelist entry")
	}
	needed, err := st.NeedsReload(ctx)
	if err != nil {
		t.Fatalf("NeedsReload failed: %v", err)
	}
	if needed {
		t.Fatal("flag should be cleared after a successful reload")
	}
}

func TestTickKeepsPreviousRulesOnBadSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	engine := filtering.NewEngine(nil)
	watcher := reload.New(cfg, st, engine, logging.NewNop())

	ctx := context.Background()
	if err := st.AddWhitelistEntry(ctx, "@good"); err != nil {
		t.Fatalf("AddWhitelistEntry failed: %v", err)
	}
	watcher.Tick(ctx)
	if !engine.Current().Channels.IsAllowed(0, "good") {
		t.Fatal("initial reload should succeed")
	}

	// Write interval bounds the snapshot builder rejects.
	settings := testsupport.MustSettings(t, st)
	settings.MinIntervalSeconds = 600
	settings.MaxIntervalSeconds = 60
	if err := st.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	watcher.Tick(ctx)

	if !engine.Current().Channels.IsAllowed(0, "good") {
		t.Fatal("rejected reload must keep the previous snapshot live")
	}
	needed, err := st.NeedsReload(ctx)
	if err != nil {
		t.Fatalf("NeedsReload failed: %v", err)
	}
	if !needed {
		t.Fatal("flag must stay raised so the next tick retries")
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	watcher := reload.New(cfg, st, filtering.NewEngine(nil), logging.NewNop())

	ctx := context.Background()
	watcher.Start(ctx)
	watcher.Start(ctx)
	watcher.Stop()
	watcher.Stop()
}
