package provider

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/ai/openrouter"
	"github.com/kenjpais/diagram-generator/ai/tracker"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/logger"
)

type fakeChatter struct {
	reqs []openrouter.ChatRequest
	resp *openrouter.ChatResponse
	err  error
}

func (f *fakeChatter) Chat(_ context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type plainClient struct{ calls int }

func (p *plainClient) Generate(context.Context, []Message) (string, error) {
	p.calls++
	return "plain", nil
}

func TestFromChatter(t *testing.T) {
	fc := &fakeChatter{resp: &openrouter.ChatResponse{Content: "\n  out  \n"}}
	c := FromChatter(fc)

	temp := 0.3
	out, err := c.GenerateWith(context.Background(), []Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "u"},
	}, Params{Temperature: &temp, Operation: "code_generation"})
	require.NoError(t, err)
	assert.Equal(t, "out", out)

	require.Len(t, fc.reqs, 1)
	assert.Equal(t, []openrouter.Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}, fc.reqs[0].Messages)
	assert.Equal(t, &temp, fc.reqs[0].Temperature)
	assert.Equal(t, "code_generation", fc.reqs[0].Operation)

	fc.err = errors.New("boom")
	_, err = c.Generate(context.Background(), nil)
	assert.EqualError(t, err, "boom")
}

func TestCall_FallsBackToGenerate(t *testing.T) {
	p := &plainClient{}
	out, err := Call(context.Background(), p, nil, Params{Operation: "x"})
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
	assert.Equal(t, 1, p.calls)
}

func TestRateLimited(t *testing.T) {
	p := &plainClient{}
	assert.Same(t, p, RateLimited(p, 0))

	limited := RateLimited(p, 20)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := limited.Generate(context.Background(), nil)
		require.NoError(t, err)
	}
	// burst of one: the second and third calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, p.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := limited.Generate(ctx, nil)
	assert.Error(t, err)
}

func openUsageDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE ai_model_usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_type TEXT NOT NULL, entity_type TEXT NOT NULL, entity_id TEXT NOT NULL,
		model_name TEXT NOT NULL, model_provider TEXT NOT NULL, model_config TEXT,
		request_timestamp DATETIME NOT NULL, response_timestamp DATETIME,
		tokens_used INTEGER, cost REAL, success BOOLEAN NOT NULL,
		error_message TEXT, metadata TEXT, created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTracked(t *testing.T) {
	db := openUsageDB(t)
	fc := &fakeChatter{resp: &openrouter.ChatResponse{
		Content: "ok",
		Model:   "gemini-1.5-flash",
		Usage:   openrouter.Usage{PromptTokens: 1_000_000, CompletionTokens: 0, TotalTokens: 1_000_000},
	}}
	ch := Tracked(fc, tracker.NewUsageTracker(db), "gemini", "gemini-1.5-flash", nil)

	ctx := logger.WithRunID(context.Background(), "run-1")
	_, err := ch.Chat(ctx, openrouter.ChatRequest{Operation: "intent_extraction"})
	require.NoError(t, err)

	fc.err = errors.New("quota exceeded")
	fc.resp = nil
	_, err = ch.Chat(ctx, openrouter.ChatRequest{})
	require.Error(t, err)

	rows, err := db.Query(`SELECT operation_type, entity_id, model_provider, success, COALESCE(cost, -1), COALESCE(error_message, '') FROM ai_model_usage ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	type row struct {
		op, entity, provider string
		success              bool
		cost                 float64
		errMsg               string
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.op, &r.entity, &r.provider, &r.success, &r.cost, &r.errMsg))
		got = append(got, r)
	}
	require.Len(t, got, 2)
	assert.Equal(t, row{"intent_extraction", "run-1", "gemini", true, 0.075, ""}, got[0])
	assert.Equal(t, row{"chat", "run-1", "gemini", false, -1, "quota exceeded"}, got[1])
}

func TestTracked_NilTrackerIsPassthrough(t *testing.T) {
	fc := &fakeChatter{}
	assert.Same(t, Chatter(fc), Tracked(fc, nil, "x", "y", nil))
}
