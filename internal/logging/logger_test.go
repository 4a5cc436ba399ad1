package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cfg config.LoggingConfig) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core), cfg)
	t.Cleanup(func() { SetLogger(nil, config.LoggingConfig{}) })
	return logs
}

func TestGet_AttachesCategory(t *testing.T) {
	logs := observe(t, config.LoggingConfig{})

	Submission("submitting %s", "GBR-2025-CC-1")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "submitting GBR-2025-CC-1", entries[0].Message)
	assert.Equal(t, "submission", entries[0].ContextMap()["category"])
}

func TestGet_DisabledCategoryIsSilent(t *testing.T) {
	logs := observe(t, config.LoggingConfig{Categories: map[string]bool{"overlay": false}})

	Overlay("should not appear")
	Validation("should appear")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "validation", entries[0].ContextMap()["category"])
}

func TestGet_ReturnsCachedLogger(t *testing.T) {
	observe(t, config.LoggingConfig{})
	assert.Same(t, Get(CategoryStore), Get(CategoryStore))
}

func TestLogger_With(t *testing.T) {
	logs := observe(t, config.LoggingConfig{})

	Get(CategoryNotify).With("document_number", "DOC-1").Warn("email failed")

	entries := logs.FilterMessage("email failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "DOC-1", entries[0].ContextMap()["document_number"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestTimer_StopWithThreshold(t *testing.T) {
	logs := observe(t, config.LoggingConfig{})

	timer := StartTimer(CategoryRuleEngine, "validate")
	time.Sleep(2 * time.Millisecond)
	timer.StopWithThreshold(time.Nanosecond)

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestAudit_Log(t *testing.T) {
	logs := observe(t, config.LoggingConfig{})

	AuditWithRequest("req-1").Log(AuditEvent{
		EventType:      AuditCertificateCompleted,
		DocumentNumber: "DOC-9",
		Success:        true,
		Offline:        true,
		Fields:         map[string]interface{}{"landings": 3},
	})
	Audit().SystemFailure("DOC-9", errors.New("rule engine down"))

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "certificate_completed", first["event"])
	assert.Equal(t, "req-1", first["req"])
	assert.Equal(t, true, first["offline"])
	assert.EqualValues(t, 3, first["landings"])
	assert.Equal(t, "rule engine down", entries[1].ContextMap()["error"])
}

func TestInitialize_RejectsBadLevel(t *testing.T) {
	_, err := Initialize(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
