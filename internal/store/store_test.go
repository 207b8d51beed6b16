package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"feedmirror/internal/media"
	"feedmirror/internal/store"
	"feedmirror/internal/testsupport"
)

func pendingPost(fp string, scheduledAt time.Time) store.PendingPost {
	return store.PendingPost{
		Item: media.Item{
			Payload:  []byte("payload-" + fp),
			FileName: fp + ".jpg",
			MimeType: "image/jpeg",
		},
		Fingerprint:     fp,
		SourceChannelID: -100500,
		SourceMessageID: 7,
		ScheduledAt:     scheduledAt,
	}
}

func TestOpenAppliesMigrationsAndSeedsSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIntervals(120, 240))
	st := testsupport.MustOpenStore(t, cfg)

	settings := testsupport.MustSettings(t, st)
	if settings.MinIntervalSeconds != 120 || settings.MaxIntervalSeconds != 240 {
		t.Fatalf("settings not seeded from config: %+v", settings)
	}
	if settings.NeedsReload {
		t.Fatal("fresh settings row should not request a reload")
	}
}

func TestSeedSettingsDoesNotOverwriteExistingRow(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIntervals(120, 240))
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	settings := testsupport.MustSettings(t, st)
	settings.MinIntervalSeconds = 10
	settings.MaxIntervalSeconds = 20
	if err := st.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	settings = testsupport.MustSettings(t, reopened)
	if settings.MinIntervalSeconds != 10 || settings.MaxIntervalSeconds != 20 {
		t.Fatalf("reopen overwrote operator settings: %+v", settings)
	}
}

func TestInsertPendingRequiresFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.InsertPending(context.Background(), pendingPost("", time.Now())); err == nil {
		t.Fatal("expected error for empty fingerprint")
	}
}

func TestNextDueOrdersByScheduleThenID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now()

	later, err := st.InsertPending(ctx, pendingPost("fp-later", now.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	earlier, err := st.InsertPending(ctx, pendingPost("fp-earlier", now.Add(-2*time.Minute)))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if _, err := st.InsertPending(ctx, pendingPost("fp-future", now.Add(time.Hour))); err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}

	due, err := st.NextDue(ctx, now)
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}
	if due == nil || due.ID != earlier.ID {
		t.Fatalf("NextDue picked %+v, want id %d", due, earlier.ID)
	}

	// Equal schedules break ties by ascending id.
	tied := now.Add(-3 * time.Minute)
	first, err := st.InsertPending(ctx, pendingPost("fp-tied-1", tied))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if _, err := st.InsertPending(ctx, pendingPost("fp-tied-2", tied)); err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	due, err = st.NextDue(ctx, now)
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}
	if due == nil || due.ID != first.ID {
		t.Fatalf("tie broken wrong: got id %d, want %d", due.ID, first.ID)
	}
	_ = later
}

func TestNextDueEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	due, err := st.NextDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}
	if due != nil {
		t.Fatalf("expected no due post, got %+v", due)
	}
}

func TestMarkProcessingClaimsExactlyOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	post, err := st.InsertPending(ctx, pendingPost("fp-claim", time.Now()))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}

	claimed, err := st.MarkProcessing(ctx, post.ID)
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	claimed, err = st.MarkProcessing(ctx, post.ID)
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if claimed {
		t.Fatal("second claim must fail; post is no longer pending")
	}
}

func TestFinalizeRequiresProcessingStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	post, err := st.InsertPending(ctx, pendingPost("fp-final", time.Now()))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}

	done, err := st.MarkCompleted(ctx, post.ID, time.Now())
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if done {
		t.Fatal("completing a pending post must be rejected")
	}

	if _, err := st.MarkProcessing(ctx, post.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	done, err = st.MarkFailed(ctx, post.ID, time.Now(), "upload refused")
	if err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if !done {
		t.Fatal("failing a processing post should succeed")
	}

	fetched, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if fetched.Status != store.StatusFailed || fetched.ErrorMessage != "upload refused" {
		t.Fatalf("unexpected post after failure: %+v", fetched)
	}
	if fetched.ProcessedAt == nil {
		t.Fatal("processed_at should be recorded")
	}
}

func TestLatestPendingScheduledAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	latest, err := st.LatestPendingScheduledAt(ctx)
	if err != nil {
		t.Fatalf("LatestPendingScheduledAt failed: %v", err)
	}
	if latest != nil {
		t.Fatalf("empty queue should yield nil, got %v", latest)
	}

	far := time.Now().Add(45 * time.Minute)
	if _, err := st.InsertPending(ctx, pendingPost("fp-near", time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if _, err := st.InsertPending(ctx, pendingPost("fp-far", far)); err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}

	latest, err = st.LatestPendingScheduledAt(ctx)
	if err != nil {
		t.Fatalf("LatestPendingScheduledAt failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest schedule")
	}
	if diff := latest.Sub(far); diff > time.Millisecond || diff < -time.Millisecond {
		t.Fatalf("latest = %v, want about %v", latest, far)
	}
}

func TestRetryFailedResetsForImmediateRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	post, err := st.InsertPending(ctx, pendingPost("fp-retry", time.Now().Add(-time.Minute)))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if _, err := st.MarkProcessing(ctx, post.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if _, err := st.MarkFailed(ctx, post.ID, time.Now(), "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	count, err := st.RetryFailed(ctx, post.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("retried %d posts, want 1", count)
	}

	fetched, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if fetched.Status != store.StatusPending {
		t.Fatalf("status = %s, want pending", fetched.Status)
	}
	if fetched.ErrorMessage != "" || fetched.ProcessedAt != nil {
		t.Fatalf("retry did not clear failure fields: %+v", fetched)
	}

	due, err := st.NextDue(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}
	if due == nil || due.ID != post.ID {
		t.Fatal("retried post should be due promptly")
	}
}

func TestRetryFailedIgnoresNonFailedPosts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	post, err := st.InsertPending(ctx, pendingPost("fp-pending", time.Now()))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}

	count, err := st.RetryFailed(ctx, post.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("retried %d posts, want 0", count)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stuck, err := st.InsertPending(ctx, pendingPost("fp-stuck", time.Now()))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if _, err := st.MarkProcessing(ctx, stuck.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if _, err := st.InsertPending(ctx, pendingPost("fp-fine", time.Now())); err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}

	count, err := st.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("reset %d posts, want 1", count)
	}

	fetched, err := st.GetPost(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if fetched.Status != store.StatusPending {
		t.Fatalf("status = %s, want pending", fetched.Status)
	}
}

func TestPayloadOffloadRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInlineLimit(0))
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	payload := []byte("definitely larger than the zero inline limit")
	post, err := st.InsertPending(ctx, store.PendingPost{
		Item:        media.Item{Payload: payload, FileName: "big.bin", MimeType: "application/octet-stream"},
		Fingerprint: "fp-offload",
		ScheduledAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if post.PayloadPath == "" {
		t.Fatal("payload should be offloaded to a file")
	}
	if len(post.PayloadInline) != 0 {
		t.Fatal("offloaded payload must not be stored inline")
	}
	if filepath.Dir(post.PayloadPath) != cfg.Paths.MediaDir {
		t.Fatalf("payload file %s is outside the media dir", post.PayloadPath)
	}

	item, err := st.LoadItem(post)
	if err != nil {
		t.Fatalf("LoadItem failed: %v", err)
	}
	if string(item.Payload) != string(payload) {
		t.Fatal("loaded payload differs from original")
	}

	removed, err := st.RemovePost(ctx, post.ID)
	if err != nil {
		t.Fatalf("RemovePost failed: %v", err)
	}
	if !removed {
		t.Fatal("expected post to be removed")
	}
	if _, err := os.Stat(post.PayloadPath); !os.IsNotExist(err) {
		t.Fatalf("payload file should be deleted, stat err = %v", err)
	}
}

func TestSmallPayloadStaysInline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	post, err := st.InsertPending(context.Background(), pendingPost("fp-inline", time.Now()))
	if err != nil {
		t.Fatalf("InsertPending failed: %v", err)
	}
	if post.PayloadPath != "" {
		t.Fatal("small payload should stay inline")
	}
	item, err := st.LoadItem(post)
	if err != nil {
		t.Fatalf("LoadItem failed: %v", err)
	}
	if string(item.Payload) != "payload-fp-inline" {
		t.Fatalf("unexpected payload %q", item.Payload)
	}
}

func TestAppendArchivedIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	msgID := int64(42)
	archived := store.ArchivedPost{
		Fingerprint:     "fp-archived",
		SourceChannelID: -1,
		SourceMessageID: 1,
		TargetMessageID: &msgID,
	}
	if err := st.AppendArchived(ctx, archived); err != nil {
		t.Fatalf("AppendArchived failed: %v", err)
	}
	if err := st.AppendArchived(ctx, archived); err != nil {
		t.Fatalf("second AppendArchived failed: %v", err)
	}

	count, err := st.ArchivedCount(ctx)
	if err != nil {
		t.Fatalf("ArchivedCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("ArchivedCount = %d, want 1", count)
	}

	has, err := st.HasFingerprint(ctx, "fp-archived")
	if err != nil {
		t.Fatalf("HasFingerprint failed: %v", err)
	}
	if !has {
		t.Fatal("archived fingerprint should be found")
	}
	has, err = st.HasFingerprint(ctx, "fp-unknown")
	if err != nil {
		t.Fatalf("HasFingerprint failed: %v", err)
	}
	if has {
		t.Fatal("unknown fingerprint should not be found")
	}
}

func TestUpdateSettingsRaisesReloadFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	settings := testsupport.MustSettings(t, st)
	settings.TargetChatID = "@mirror"
	settings.QueueEnabled = true
	if err := st.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	needed, err := st.NeedsReload(ctx)
	if err != nil {
		t.Fatalf("NeedsReload failed: %v", err)
	}
	if !needed {
		t.Fatal("settings update should raise the reload flag")
	}

	if err := st.ClearReloadFlag(ctx); err != nil {
		t.Fatalf("ClearReloadFlag failed: %v", err)
	}
	needed, err = st.NeedsReload(ctx)
	if err != nil {
		t.Fatalf("NeedsReload failed: %v", err)
	}
	if needed {
		t.Fatal("flag should be lowered after clear")
	}
}

func TestWhitelistAndRulesRaiseReloadFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := st.AddWhitelistEntry(ctx, "@news"); err != nil {
		t.Fatalf("AddWhitelistEntry failed: %v", err)
	}
	needed, err := st.NeedsReload(ctx)
	if err != nil {
		t.Fatalf("NeedsReload failed: %v", err)
	}
	if !needed {
		t.Fatal("whitelist change should raise the reload flag")
	}

	// Duplicate entries are ignored.
	if err := st.AddWhitelistEntry(ctx, "@news"); err != nil {
		t.Fatalf("duplicate AddWhitelistEntry failed: %v", err)
	}
	specifiers, err := st.ListWhitelist(ctx)
	if err != nil {
		t.Fatalf("ListWhitelist failed: %v", err)
	}
	if len(specifiers) != 1 || specifiers[0] != "@news" {
		t.Fatalf("unexpected whitelist %v", specifiers)
	}

	ruleSet, err := st.CurrentRuleSet(ctx)
	if err != nil {
		t.Fatalf("CurrentRuleSet failed: %v", err)
	}
	if len(ruleSet.Whitelist) != 1 {
		t.Fatalf("rule set whitelist = %v", ruleSet.Whitelist)
	}
}

func TestClearByStatusSweepsPosts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		post, err := st.InsertPending(ctx, pendingPost(fmt.Sprintf("fp-clear-%d", i), time.Now()))
		if err != nil {
			t.Fatalf("InsertPending failed: %v", err)
		}
		if _, err := st.MarkProcessing(ctx, post.ID); err != nil {
			t.Fatalf("MarkProcessing failed: %v", err)
		}
		if i == 0 {
			if _, err := st.MarkCompleted(ctx, post.ID, time.Now()); err != nil {
				t.Fatalf("MarkCompleted failed: %v", err)
			}
		} else {
			if _, err := st.MarkFailed(ctx, post.ID, time.Now(), "x"); err != nil {
				t.Fatalf("MarkFailed failed: %v", err)
			}
		}
	}

	count, err := st.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("cleared %d failed posts, want 2", count)
	}

	count, err = st.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("cleared %d completed posts, want 1", count)
	}

	counts, err := st.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	for status, n := range counts {
		if n != 0 {
			t.Fatalf("status %s still has %d posts", status, n)
		}
	}
}

func TestGetPostMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	post, err := st.GetPost(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post != nil {
		t.Fatalf("expected nil for missing post, got %+v", post)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := store.ParseStatus(" Pending "); !ok || status != store.StatusPending {
		t.Fatalf("ParseStatus = %s, %v", status, ok)
	}
	if _, ok := store.ParseStatus("bogus"); ok {
		t.Fatal("bogus status should not parse")
	}
	if !store.StatusFailed.IsTerminal() || store.StatusPending.IsTerminal() {
		t.Fatal("terminal statuses misclassified")
	}
}
