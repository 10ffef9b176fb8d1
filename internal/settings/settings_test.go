package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/tick-tracker/internal/settings"
	"github.com/Tiliavir/tick-tracker/internal/storage"
)

type memKV struct {
	data    map[string]string
	failGet bool
	failSet bool
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.failGet {
		return "", false, errors.New("disk on fire")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	if m.failSet {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	s, err := settings.Load(context.Background(), newMemKV())
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), s)
	assert.True(t, s.ReminderEnabled)
	assert.Equal(t, []string{"10:00", "17:00", "21:00"}, s.ReminderTimes)
}

func TestDecodePartialRecord(t *testing.T) {
	s, err := settings.Decode(`{"apiKey":"abc","reminderEnabled":false}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", s.APIKey)
	assert.Equal(t, settings.DefaultBaseURL, s.BaseURL)
	assert.False(t, s.ReminderEnabled)
	assert.Equal(t, settings.DefaultReminderTimes, s.ReminderTimes)
}

func TestDecodeDropsNonStringTimes(t *testing.T) {
	s, err := settings.Decode(`{"reminderTimes":["10:00",7,null,"18:30"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "18:30"}, s.ReminderTimes)

	s, err = settings.Decode(`{"reminderTimes":"10:00"}`)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultReminderTimes, s.ReminderTimes)
}

func TestDecodeNormalizesTimes(t *testing.T) {
	s, err := settings.Decode(`{"reminderTimes":["18:30","25:00","09:00","18:30","9:5"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "18:30"}, s.ReminderTimes)
	assert.Len(t, s.Schedule().Times, 2)
}

func TestDecodeCorruptFallsBack(t *testing.T) {
	s, err := settings.Decode(`{not json`)
	assert.Error(t, err)
	assert.Equal(t, settings.Defaults(), s)
}

func TestSaveNormalizes(t *testing.T) {
	kv := newMemKV()
	saved, err := settings.Save(context.Background(), kv, settings.Settings{
		APIKey:          "  key  ",
		BaseURL:         "https://example.com/api/v2 ",
		ReminderEnabled: true,
		ReminderTimes:   []string{"17:00", "10:00", "10:00", "bad"},
	})
	require.NoError(t, err)
	assert.Equal(t, "key", saved.APIKey)
	assert.Equal(t, []string{"10:00", "17:00"}, saved.ReminderTimes)
	assert.JSONEq(t,
		`{"apiKey":"key","baseUrl":"https://example.com/api/v2","reminderEnabled":true,"reminderTimes":["10:00","17:00"]}`,
		kv.data[settings.StorageKey])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	in := settings.Settings{
		APIKey:          "secret",
		BaseURL:         "https://acme.tickspot.com/1/api/v2",
		ReminderEnabled: false,
		ReminderTimes:   []string{"09:00", "16:30"},
	}
	_, err = settings.Save(ctx, store, in)
	require.NoError(t, err)

	out, err := settings.Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, settings.Equal(in, out), "got %+v", out)
}

func TestServiceReloadFallsBackOnError(t *testing.T) {
	kv := newMemKV()
	kv.failGet = true
	svc := settings.NewService(kv, nil)

	got := svc.Reload(context.Background())
	assert.Equal(t, settings.Defaults(), got)
	assert.True(t, svc.Ready())
}

func TestServiceSaveNotifies(t *testing.T) {
	svc := settings.NewService(newMemKV(), nil)
	ctx := context.Background()
	svc.Reload(ctx)

	var seen []settings.Settings
	unsubscribe := svc.Subscribe(func(s settings.Settings) { seen = append(seen, s) })

	next := svc.Current()
	next.APIKey = "k1"
	_, err := svc.Save(ctx, next)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "k1", seen[0].APIKey)
	assert.Equal(t, "k1", svc.Current().APIKey)

	// Saving the same values again does not notify.
	_, err = svc.Save(ctx, next)
	require.NoError(t, err)
	assert.Len(t, seen, 1)

	unsubscribe()
	next.APIKey = "k2"
	_, err = svc.Save(ctx, next)
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestServiceSaveFailureKeepsSnapshot(t *testing.T) {
	kv := newMemKV()
	svc := settings.NewService(kv, nil)
	ctx := context.Background()
	svc.Reload(ctx)

	kv.failSet = true
	next := svc.Current()
	next.APIKey = "new"
	_, err := svc.Save(ctx, next)
	require.Error(t, err)
	assert.Equal(t, "", svc.Current().APIKey)
}
