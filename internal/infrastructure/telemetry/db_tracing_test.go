package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestModel is a simple model for testing database operations
type TestModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
}

// setupTestDB creates a new SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&TestModel{})
	require.NoError(t, err)

	return db
}

// setupTracerWithExporter creates a tracer provider with a span recorder for testing
func setupTracerWithExporter(t *testing.T) (*trace.TracerProvider, *tracetest.SpanRecorder) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(spanRecorder))
	return tp, spanRecorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestNewDBTracingPlugin(t *testing.T) {
	logger := zap.NewNop()
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	plugin := NewDBTracingPlugin(cfg, logger)

	assert.NotNil(t, plugin)
	assert.Equal(t, cfg, plugin.config)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = false

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_WithFullSQL(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: false,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_DoubleRegistration(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// First registration should succeed
	err := plugin.RegisterOtelGorm(db)
	assert.NoError(t, err)

	// Second registration should fail (duplicate plugin/callback names)
	err = plugin.RegisterOtelGorm(db)
	assert.Error(t, err)
}

func TestSlowQueryCallback_RecordNotFoundIsNotAnError(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}
	plugin := NewDBTracingPlugin(cfg, logger)

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "error-test")

	db = db.WithContext(ctx)
	var result TestModel
	tx := db.First(&result, 99999)

	plugin.slowQueryCallback(tx)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSlowQueryCallback_SlowQueryEvent(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  1 * time.Nanosecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}
	plugin := NewDBTracingPlugin(cfg, logger)

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "slow-query-event-test")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now())
	time.Sleep(1 * time.Millisecond)

	db = db.WithContext(ctx)
	var result TestModel
	db.First(&result)

	plugin.slowQueryCallback(db)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	testSpan := spans[0]
	foundEvent := false
	for _, event := range testSpan.Events() {
		if event.Name == "slow_query_warning" {
			foundEvent = true
			for _, attr := range event.Attributes {
				if attr.Key == "duration_ms" {
					assert.True(t, attr.Value.AsInt64() > 0)
				}
			}
		}
	}
	assert.True(t, foundEvent, "slow_query_warning event should be recorded")
}

func TestSlowQueryCallback_NonRecordingSpan(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// Create a context without a span
	ctx := context.Background()
	db = db.WithContext(ctx)

	// This should not panic even without a recording span
	plugin.slowQueryCallback(db)
}

func TestSlowQueryCallback_NilContext(t *testing.T) {
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// Create a DB without context
	db := setupTestDB(t)

	// This should not panic with nil context
	plugin.slowQueryCallback(db)
}

func TestDBTracingPlugin_IntegrationWithOtelGorm(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: false,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)
	require.NoError(t, err)

	// Create a traced context
	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "integration-test")

	// Perform database operations
	db = db.WithContext(ctx)
	result := db.Create(&TestModel{Name: "integration-test"})
	require.NoError(t, result.Error)

	var found TestModel
	result = db.First(&found, "name = ?", "integration-test")
	require.NoError(t, result.Error)
	assert.Equal(t, "integration-test", found.Name)

	span.End()

	// Check that spans were recorded
	spans := spanRecorder.Ended()
	assert.NotEmpty(t, spans)
}

func TestDBTracingConfig_SecurityDefaults(t *testing.T) {
	// Verify that default config is secure (no SQL logging, variables hidden)
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.LogFullSQL, "LogFullSQL should be disabled by default for security")
	assert.True(t, cfg.WithoutVariables, "WithoutVariables should be true by default for security")
}
