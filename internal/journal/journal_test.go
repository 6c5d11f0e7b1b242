package journal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	xerrors "ProjectSubmission-Chain/internal/errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreAppendListGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entries := []Entry{
		{Operation: "registerUniversity", Sender: "0xowner", Status: StatusMined},
		{Operation: "submitProject", Sender: "0xauthor", Status: StatusReverted, Error: "University is not available"},
		{Operation: "submitProject", Sender: "0xauthor", Status: StatusMined, Value: "1000000000000000000"},
	}
	for i := range entries {
		entries[i].ID = []string{"e1", "e2", "e3"}[i]
		if err := store.Append(ctx, entries[i]); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if err := store.Append(ctx, Entry{ID: "e1"}); !errors.Is(err, ErrEntryConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	all, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "e3" || all[2].ID != "e1" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[2].Value != "0" || all[2].CreatedAt == 0 {
		t.Fatalf("expected defaults to be applied, got %+v", all[2])
	}

	reverted, err := store.List(ctx, ListOptions{Operation: "submitProject", Statuses: []Status{StatusReverted}})
	if err != nil {
		t.Fatalf("list reverted: %v", err)
	}
	if len(reverted) != 1 || reverted[0].ID != "e2" {
		t.Fatalf("unexpected reverted list %+v", reverted)
	}

	limited, _ := store.List(ctx, ListOptions{Sender: "0xauthor", Limit: 1})
	if len(limited) != 1 || limited[0].ID != "e3" {
		t.Fatalf("unexpected limited list %+v", limited)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := store.Get(ctx, "e2")
	if err != nil || got.Error == "" {
		t.Fatalf("get e2: %+v %v", got, err)
	}
}

type capturePublisher struct {
	entries []Entry
	err     error
	closed  bool
}

func (c *capturePublisher) Publish(_ context.Context, entry Entry) error {
	c.entries = append(c.entries, entry)
	return c.err
}

func (c *capturePublisher) Close() error {
	c.closed = true
	return nil
}

func TestFanoutRecordsEverywhere(t *testing.T) {
	store := NewMemoryStore()
	ok := &capturePublisher{}
	broken := &capturePublisher{err: errors.New("broker down")}
	fanout := NewFanout(store, broken, ok)

	err := fanout.Record(context.Background(), Entry{Operation: "withdraw", Status: StatusMined})
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("expected publisher error to surface, got %v", err)
	}
	if len(ok.entries) != 1 {
		t.Fatal("healthy publisher should still receive the entry")
	}
	listed, _ := store.List(context.Background(), ListOptions{})
	if len(listed) != 1 || listed[0].ID != ok.entries[0].ID {
		t.Fatalf("store and publisher should see the same entry id")
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ok.closed || !broken.closed {
		t.Fatal("publishers should be closed")
	}
}

type fakeRedis struct {
	redis.Cmdable
	key    string
	values []interface{}
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.values)))
	return cmd
}

func TestRedisPublisherPushesJSON(t *testing.T) {
	client := &fakeRedis{}
	publisher := newRedisPublisher(client, nil, "")

	if err := publisher.Publish(context.Background(), Entry{ID: "e1", Operation: "donate", Status: StatusMined}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if client.key != "projectsubmission:journal" {
		t.Fatalf("unexpected list %s", client.key)
	}
	var decoded Entry
	if err := json.Unmarshal(client.values[0].([]byte), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.ID != "e1" || decoded.Operation != "donate" {
		t.Fatalf("unexpected payload %+v", decoded)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

type fakeChannel struct {
	key string
	msg amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.key = key
	f.msg = msg
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestRabbitMQPublisherPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	publisher := &RabbitMQPublisher{ch: ch, queue: "journal"}

	if err := publisher.Publish(context.Background(), Entry{ID: "e9", Operation: "withdraw"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ch.key != "journal" || ch.msg.MessageId != "e9" || ch.msg.Type != "withdraw" {
		t.Fatalf("unexpected publishing %+v to %s", ch.msg, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || ch.msg.ContentType != "application/json" {
		t.Fatalf("expected persistent json message, got %+v", ch.msg)
	}
}

func TestBuildListQuery(t *testing.T) {
	opts := ListOptions{Sender: "0xabc", Statuses: []Status{StatusMined, StatusReverted}}
	opts.applyDefaults()
	query, args := buildListQuery(opts)
	if !strings.Contains(query, "sender = ? AND status IN (?, ?)") {
		t.Fatalf("unexpected query %s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY seq DESC LIMIT ?") {
		t.Fatalf("unexpected ordering %s", query)
	}
	if len(args) != 4 || args[3] != defaultListLimit {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	files, err := loadMigrations(embeddedMigrations)
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(files))
	}
	if files[0].version != 1 || !strings.Contains(files[0].statements[0], "CREATE TABLE IF NOT EXISTS tx_journal") {
		t.Fatalf("first migration should create tx_journal, got %+v", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1].version >= files[i].version {
			t.Fatalf("migrations out of order: %s before %s", files[i-1].name, files[i].name)
		}
	}
	for _, f := range files {
		if len(f.checksum) != 64 {
			t.Fatalf("%s: unexpected checksum %q", f.name, f.checksum)
		}
	}
}

func TestLoadMigrationsRejectsBadNames(t *testing.T) {
	cases := []fstest.MapFS{
		{"init.sql": {Data: []byte("SELECT 1;")}},
		{"0001_a.sql": {Data: []byte("SELECT 1;")}, "1_b.sql": {Data: []byte("SELECT 2;")}},
	}
	for i, fsys := range cases {
		if _, err := loadMigrations(fsys); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestPendingMigrationsDetectsEditedFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_create.sql": {Data: []byte("CREATE TABLE t (x INT);")},
		"0002_index.sql":  {Data: []byte("-- speed up lookups\nCREATE INDEX i ON t (x);")},
	}
	all, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	pending, err := pendingMigrations(all, map[int]string{1: all[0].checksum})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].version != 2 || pending[0].statements[0] != "CREATE INDEX i ON t (x)" {
		t.Fatalf("unexpected pending %+v", pending)
	}
	_, err = pendingMigrations(all, map[int]string{1: "edited"})
	if !xerrors.HasCode(err, xerrors.CodeStorageFailure) {
		t.Fatalf("expected storage failure for edited migration, got %v", err)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	got := splitSQLStatements("-- header\nCREATE INDEX a ON t (x);\n\n  CREATE INDEX b ON t (y);\n")
	if len(got) != 2 || got[0] != "CREATE INDEX a ON t (x)" || got[1] != "CREATE INDEX b ON t (y)" {
		t.Fatalf("unexpected statements %q", got)
	}
	if v, err := migrationVersion("0003_add_column.sql"); err != nil || v != 3 {
		t.Fatalf("unexpected version %d err %v", v, err)
	}
	if v, err := migrationVersion("0004.sql"); err != nil || v != 4 {
		t.Fatalf("unexpected version %d err %v", v, err)
	}
}
