package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerRegister(t *testing.T) {
	s := NewCronScheduler()

	require.NoError(t, s.Register("plugin.sync.run", "@every 1h", func() {}))
	assert.Equal(t, 1, s.Len())

	// Re-registering the same name keeps the existing entry.
	require.NoError(t, s.Register("plugin.sync.run", "*/5 * * * *", func() {}))
	assert.Equal(t, 1, s.Len())
}

func TestCronSchedulerRegisterInvalidSpec(t *testing.T) {
	s := NewCronScheduler()

	err := s.Register("plugin.sync.run", "not a cron spec", func() {})
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestCronSchedulerListByPrefix(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.Register("plugin.sync.run", "@every 1h", func() {}))
	require.NoError(t, s.Register("plugin.labels.print", "@every 1h", func() {}))
	require.NoError(t, s.Register("host.cleanup", "@every 1h", func() {}))

	assert.Equal(t, []string{"plugin.labels.print", "plugin.sync.run"}, s.List("plugin."))
	assert.Equal(t, []string{"host.cleanup"}, s.List("host."))
	assert.Empty(t, s.List("other."))
}

func TestCronSchedulerDelete(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.Register("plugin.sync.run", "@every 1h", func() {}))

	require.NoError(t, s.Delete("plugin.sync.run"))
	assert.Equal(t, 0, s.Len())

	err := s.Delete("plugin.sync.run")
	require.Error(t, err, "deleting an unknown task must fail")
}

func TestCronSchedulerStartStop(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.Register("plugin.sync.run", "@every 1h", func() {}))
	s.Start()
	s.Stop()
}
