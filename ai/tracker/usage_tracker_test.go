package tracker

import (
	"context"
	"database/sql"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE ai_model_usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_type TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		model_name TEXT NOT NULL,
		model_provider TEXT NOT NULL,
		model_config TEXT,
		request_timestamp DATETIME NOT NULL,
		response_timestamp DATETIME,
		tokens_used INTEGER,
		cost REAL,
		success BOOLEAN NOT NULL,
		error_message TEXT,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(i int) *int             { return &i }
func float64Ptr(f float64) *float64 { return &f }

func TestTrackUsage(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewUsageTracker(db)
	ctx := context.Background()

	now := time.Now()
	responseTime := now.Add(2 * time.Second)

	usage := &ModelUsage{
		OperationType:     "intent_extraction",
		EntityType:        "run",
		EntityID:          "run-123",
		ModelName:         "gemini-1.5-flash",
		ModelProvider:     "gemini",
		ModelConfig:       NewModelConfig(float64Ptr(0.1), intPtr(4096)),
		RequestTimestamp:  now,
		ResponseTimestamp: &responseTime,
		TokensUsed:        intPtr(150),
		Cost:              float64Ptr(0.05),
		Success:           true,
		Metadata:          NewUsageMetadata(UsageMetadata{PromptTokens: 100, CompletionTokens: 50}),
	}

	if err := tracker.TrackUsage(ctx, usage); err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}

	var stored ModelUsage
	err := db.QueryRow(`
		SELECT operation_type, entity_type, entity_id, model_name, model_provider,
		       tokens_used, cost, success
		FROM ai_model_usage WHERE id = 1`).Scan(
		&stored.OperationType, &stored.EntityType, &stored.EntityID,
		&stored.ModelName, &stored.ModelProvider, &stored.TokensUsed,
		&stored.Cost, &stored.Success)
	if err != nil {
		t.Fatalf("Failed to retrieve stored usage: %v", err)
	}

	if stored.OperationType != "intent_extraction" {
		t.Errorf("Expected operation_type 'intent_extraction', got '%s'", stored.OperationType)
	}
	if stored.EntityID != "run-123" {
		t.Errorf("Expected entity_id 'run-123', got '%s'", stored.EntityID)
	}
	if *stored.TokensUsed != 150 {
		t.Errorf("Expected tokens_used 150, got %d", *stored.TokensUsed)
	}
	if *stored.Cost != 0.05 {
		t.Errorf("Expected cost 0.05, got %f", *stored.Cost)
	}
	if !stored.Success {
		t.Error("Expected success to be true")
	}
}

func TestTrackUsageWithError(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewUsageTracker(db)

	errorMsg := "API key invalid"
	usage := &ModelUsage{
		OperationType:    "code_generation",
		EntityType:       "run",
		EntityID:         "run-456",
		ModelName:        "claude-3-haiku-20240307",
		ModelProvider:    "anthropic",
		RequestTimestamp: time.Now(),
		Success:          false,
		ErrorMessage:     &errorMsg,
	}

	if err := tracker.TrackUsage(context.Background(), usage); err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}

	var storedSuccess bool
	var storedErrorMsg sql.NullString
	err := db.QueryRow("SELECT success, error_message FROM ai_model_usage WHERE id = 1").Scan(&storedSuccess, &storedErrorMsg)
	if err != nil {
		t.Fatalf("Failed to retrieve error record: %v", err)
	}
	if storedSuccess {
		t.Error("Expected success to be false for error case")
	}
	if !storedErrorMsg.Valid || storedErrorMsg.String != "API key invalid" {
		t.Errorf("Expected error message 'API key invalid', got '%s'", storedErrorMsg.String)
	}
}

func seedUsage(t *testing.T, tracker *UsageTracker, at time.Time) {
	t.Helper()
	responseTime := at.Add(2 * time.Second)
	usages := []*ModelUsage{
		{OperationType: "intent_extraction", EntityType: "run", EntityID: "1", ModelName: "gemini-1.5-flash", ModelProvider: "gemini",
			RequestTimestamp: at, ResponseTimestamp: &responseTime, TokensUsed: intPtr(100), Cost: float64Ptr(0.02), Success: true},
		{OperationType: "code_generation", EntityType: "run", EntityID: "1", ModelName: "gemini-1.5-flash", ModelProvider: "gemini",
			RequestTimestamp: at, ResponseTimestamp: &responseTime, TokensUsed: intPtr(200), Cost: float64Ptr(0.04), Success: true},
		{OperationType: "error_correction", EntityType: "run", EntityID: "1", ModelName: "llama3.2:3b", ModelProvider: "local",
			RequestTimestamp: at, ResponseTimestamp: &responseTime, TokensUsed: intPtr(150), Cost: float64Ptr(0), Success: true},
		{OperationType: "error_correction", EntityType: "run", EntityID: "2", ModelName: "llama3.2:3b", ModelProvider: "local",
			RequestTimestamp: at, Success: false},
	}
	for _, u := range usages {
		if err := tracker.TrackUsage(context.Background(), u); err != nil {
			t.Fatalf("Failed to insert test usage: %v", err)
		}
	}
}

func TestGetUsageStats(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewUsageTracker(db)
	ctx := context.Background()

	now := time.Now()
	seedUsage(t, tracker, now.Add(-time.Hour))

	stats, err := tracker.GetUsageStats(ctx, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("GetUsageStats failed: %v", err)
	}
	if stats.TotalRequests != 4 {
		t.Errorf("Expected 4 total requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 3 {
		t.Errorf("Expected 3 successful requests, got %d", stats.SuccessfulRequests)
	}
	if stats.TotalTokens != 450 {
		t.Errorf("Expected 450 total tokens, got %d", stats.TotalTokens)
	}
	if math.Abs(stats.TotalCost-0.06) > 1e-9 {
		t.Errorf("Expected total cost 0.06, got %f", stats.TotalCost)
	}
	if stats.UniqueModels != 2 {
		t.Errorf("Expected 2 unique models, got %d", stats.UniqueModels)
	}
	if math.Abs(stats.SuccessRate-0.75) > 0.001 {
		t.Errorf("Expected success rate 0.75, got %f", stats.SuccessRate)
	}

	recent, err := tracker.GetUsageStats(ctx, now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("GetUsageStats for recent period failed: %v", err)
	}
	if recent.TotalRequests != 0 || recent.SuccessRate != 0 {
		t.Errorf("Expected empty recent stats, got %+v", recent)
	}
}

func TestGetModelBreakdown(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewUsageTracker(db)

	now := time.Now()
	seedUsage(t, tracker, now.Add(-time.Hour))

	breakdown, err := tracker.GetModelBreakdown(context.Background(), now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("GetModelBreakdown failed: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("Expected 2 models in breakdown, got %d", len(breakdown))
	}

	gemini := breakdown[0]
	if gemini.ModelName != "gemini-1.5-flash" {
		t.Fatalf("Expected most expensive model first, got %s", gemini.ModelName)
	}
	if gemini.RequestCount != 2 || gemini.TotalTokens != 300 {
		t.Errorf("Unexpected gemini breakdown: %+v", gemini)
	}
	if gemini.AvgResponseTimeMs == nil {
		t.Error("Expected non-nil avg response time")
	} else if math.Abs(*gemini.AvgResponseTimeMs-2000) > 1 {
		t.Errorf("Expected avg response time ~2000ms, got %f", *gemini.AvgResponseTimeMs)
	}

	local := breakdown[1]
	if local.RequestCount != 1 {
		t.Errorf("Failed requests must not count toward breakdown, got %d", local.RequestCount)
	}
}

func TestGetOperationBreakdown(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewUsageTracker(db)

	now := time.Now()
	seedUsage(t, tracker, now.Add(-time.Hour))

	ops, err := tracker.GetOperationBreakdown(context.Background(), now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("GetOperationBreakdown failed: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("Expected 3 operations, got %d", len(ops))
	}
	if ops[0].OperationType != "error_correction" || ops[0].RequestCount != 2 || ops[0].FailedCount != 1 {
		t.Errorf("Unexpected first operation: %+v", ops[0])
	}
}

func TestTrackUsage_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ai_model_usage")).
		WillReturnError(sql.ErrConnDone)

	tracker := NewUsageTracker(db)
	err = tracker.TrackUsage(context.Background(), &ModelUsage{ModelName: "m", RequestTimestamp: time.Now()})
	if err == nil {
		t.Fatal("Expected error from failing database")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestGetUsageStats_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"total_requests", "successful_requests", "total_tokens", "total_cost", "unique_models"}).
		AddRow(10, 8, 5000, 1.25, 3)
	mock.ExpectQuery("SELECT (.+) FROM ai_model_usage").WillReturnRows(rows)

	stats, err := NewUsageTracker(db).GetUsageStats(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetUsageStats failed: %v", err)
	}
	if stats.SuccessRate != 0.8 {
		t.Errorf("Expected success rate 0.8, got %f", stats.SuccessRate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestNewModelConfig(t *testing.T) {
	if NewModelConfig(nil, nil) != nil {
		t.Error("Expected nil config for nil parameters")
	}
	cfg := NewModelConfig(float64Ptr(0.7), nil)
	if cfg == nil || *cfg != `{"temperature":0.7}` {
		t.Errorf("Unexpected config: %v", cfg)
	}
}

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		provider, model string
		prompt, output  int
		want            float64
	}{
		{"gemini", "gemini-1.5-flash", 1_000_000, 1_000_000, 0.375},
		{"anthropic", "claude-sonnet-4-20250514", 1000, 500, 0.0105},
		{"openrouter", "openai/gpt-4o-mini", 1_000_000, 0, 0.15},
		{"local", "llama3.2:3b", 1_000_000, 1_000_000, 0},
		{"gemini", "gemini-ultra-unknown", 10, 10, DefaultPricingFallback},
		{"Anthropic", "claude-3-haiku-20240307", 1_000_000, 0, 0.25},
	}
	for _, tt := range tests {
		got := CalculateCost(tt.provider, tt.model, tt.prompt, tt.output)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CalculateCost(%s, %s) = %f, want %f", tt.provider, tt.model, got, tt.want)
		}
	}
}
