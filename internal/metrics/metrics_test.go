package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ActiveWatchers.Inc()
	m.NotificationsDelivered.Add(2)
	m.MessagesHandled.WithLabelValues("Help").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveWatchers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsDelivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesHandled.WithLabelValues("Help")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["intrusionbot_active_watchers"])
	assert.True(t, names["intrusionbot_notifications_delivered_total"])
	assert.True(t, names["intrusionbot_messages_handled_total"])
}

func TestNew_NilRegistererIsIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
