package logging_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/dirsync/pkg/logging"
)

func TestContextFields(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	ctx = logging.WithRunID(ctx, "20240101T000000.000")
	ctx = logging.WithJob(ctx, "ticket-users")
	ctx = logging.WithOperation(ctx, "update")
	ctx = logging.WithLogin(ctx, "alice")
	ctx = logging.WithUserID(ctx, 42)

	logging.FromContext(ctx).Info().Msg("User updated")

	tl.AssertContains(t, `"run_id":"20240101T000000.000"`)
	tl.AssertContains(t, `"job":"ticket-users"`)
	tl.AssertContains(t, `"operation":"update"`)
	tl.AssertContains(t, `"login":"alice"`)
	tl.AssertContains(t, `"user_id":42`)
	assert.Equal(t, 1, strings.Count(tl.Output(), "\n"))
}

func TestContextFieldsDoNotLeakToParent(t *testing.T) {
	tl := logging.NewTestLogger(t)
	parent := logging.WithLogger(context.Background(), tl.Logger)

	_ = logging.WithLogin(parent, "alice")
	logging.FromContext(parent).Info().Msg("Delete phase finished")

	assert.NotContains(t, tl.Output(), "alice")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Same(t, logging.Default(), logging.FromContext(nil))
	assert.Same(t, logging.Default(), logging.FromContext(logging.WithLogger(context.Background(), nil)))
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := logging.CaptureLoggingForTest(t)

	logging.FromContext(context.Background()).Warn().Msg("Watermark missing")

	tl.AssertContains(t, "Watermark missing")
}
