package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	err := Newf("something broke").Build()

	assert.Equal(t, "something broke", err.Error())
	assert.Equal(t, ComponentUnknown, err.GetComponent())
	assert.Equal(t, string(CategoryGeneric), err.GetCategory())
	assert.False(t, err.Timestamp.IsZero())
}

func TestBuilderCarriesMetadata(t *testing.T) {
	err := Newf("fetch failed").
		Component("api").
		Category(CategoryHTTP).
		Context("status", 500).
		Context("path", "/api/notifications").
		Build()

	assert.Equal(t, "api", err.GetComponent())
	assert.Equal(t, string(CategoryHTTP), err.GetCategory())
	assert.Equal(t, 500, err.GetContext()["status"])
	assert.Equal(t, "/api/notifications", err.GetContext()["path"])
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := NewStd("root cause")
	err := New(fmt.Errorf("wrapped: %w", cause)).
		Component("api").
		Build()

	assert.True(t, Is(err, cause))
	assert.Equal(t, "wrapped: root cause", err.Error())
}

func TestIsMatchesByCategory(t *testing.T) {
	a := Newf("a").Category(CategoryNotFound).Build()
	b := Newf("completely different text").Category(CategoryNotFound).Build()
	c := Newf("c").Category(CategoryNetwork).Build()

	assert.True(t, Is(a, b), "enhanced errors match by category")
	assert.False(t, Is(a, c))
}

func TestIsCategoryThroughWrapping(t *testing.T) {
	inner := Newf("db locked").Category(CategoryDatabase).Build()
	wrapped := fmt.Errorf("saving order: %w", inner)

	assert.True(t, IsCategory(wrapped, CategoryDatabase))
	assert.False(t, IsCategory(wrapped, CategoryNetwork))
	assert.False(t, IsCategory(nil, CategoryDatabase))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(Newf("gone").Category(CategoryNotFound).Build()))
	assert.False(t, IsNotFound(NewStd("plain error")))
}

func TestPriorityValidation(t *testing.T) {
	assert.Equal(t, PriorityHigh, Newf("x").Priority(PriorityHigh).Build().Priority)
	assert.Equal(t, PriorityMedium, Newf("x").Priority("bogus").Build().Priority,
		"unknown priorities fall back to medium")
	assert.Empty(t, Newf("x").Build().Priority)
}

func TestTelemetryReporterHook(t *testing.T) {
	var mu sync.Mutex
	var reported []*EnhancedError

	SetTelemetryReporter(func(ee *EnhancedError) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, ee)
	})
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	Newf("reported failure").Component("push").Category(CategoryMQTTConnection).Build()

	mu.Lock()
	require.Len(t, reported, 1)
	assert.Equal(t, "push", reported[0].GetComponent())
	mu.Unlock()

	// Disabling the hook stops reporting.
	SetTelemetryReporter(nil)
	Newf("unreported").Build()

	mu.Lock()
	assert.Len(t, reported, 1)
	mu.Unlock()
}
