package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedmirror/internal/daemon"
	"feedmirror/internal/ingest"
	"feedmirror/internal/logging"
	"feedmirror/internal/media"
	"feedmirror/internal/publisher"
	"feedmirror/internal/store"
	"feedmirror/internal/testsupport"
)

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := daemon.New(cfg, st, publisher.Noop{}, logging.NewNop())
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer first.Stop()

	second := daemon.New(cfg, st, publisher.Noop{}, logging.NewNop())
	if err := second.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestStopReleasesLockForRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	d := daemon.New(cfg, st, publisher.Noop{}, logging.NewNop())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	replacement := daemon.New(cfg, st, publisher.Noop{}, logging.NewNop())
	if err := replacement.Start(ctx); err != nil {
		t.Fatalf("restart after Stop failed: %v", err)
	}
	replacement.Stop()
}

func TestStartReclaimsStuckPosts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	post, err := st.InsertPending(ctx, store.PendingPost{
		Item:        media.Item{Payload: []byte("stuck"), MimeType: "image/jpeg"},
		Fingerprint: "fp-stuck",
		ScheduledAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if _, err := st.MarkProcessing(ctx, post.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	d := daemon.New(cfg, st, publisher.Noop{}, logging.NewNop())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	fetched, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if fetched.Status != store.StatusPending {
		t.Fatalf("status = %s, want pending after startup recovery", fetched.Status)
	}
}

func TestStartLoadsStoredRulesIntoEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := st.AddWhitelistEntry(ctx, "-100321"); err != nil {
		t.Fatalf("AddWhitelistEntry failed: %v", err)
	}

	d := daemon.New(cfg, st, publisher.Noop{}, logging.NewNop())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if !d.Engine().Current().Channels.IsAllowed(-100321, "") {
		t.Fatal("stored whitelist should be live after Start")
	}

	outcome, err := d.Pipeline().Handle(ctx, ingest.Message{
		ChannelID: -100321,
		MessageID: 1,
		Media:     []media.Item{{Payload: []byte("hello"), MimeType: "image/png"}},
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if outcome.ChannelRejected {
		t.Fatal("whitelisted channel should be admitted through the daemon pipeline")
	}
}
