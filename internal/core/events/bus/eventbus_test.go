package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []Event
	_, err := b.Subscribe(TypeTick, func(e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent(TypeTick, "patrol", 123, nil)))
	require.NoError(t, b.Publish(NewEvent(TypeNodeOpen, "patrol", nil, nil)))

	require.Len(t, got, 1)
	require.Equal(t, "patrol", got[0].Source())
	require.Equal(t, 123, got[0].Data())
}

func TestAnyTypeSeesEverything(t *testing.T) {
	b := New()
	var types []string
	_, err := b.Subscribe(AnyType, func(e Event) error {
		types = append(types, e.Type())
		return nil
	})
	require.NoError(t, err)

	for _, typ := range []string{TypeNodeOpen, TypeNodeClose, TypeTick} {
		require.NoError(t, b.Publish(NewEvent(typ, "t", nil, nil)))
	}
	require.Equal(t, []string{TypeNodeOpen, TypeNodeClose, TypeTick}, types)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("ev", func(Event) error { count++; return nil })
	require.NoError(t, err)
	require.True(t, sub.IsActive())
	require.NotEmpty(t, sub.ID())

	require.NoError(t, b.Publish(NewEvent("ev", "s", nil, nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.False(t, sub.IsActive())
	require.NoError(t, b.Publish(NewEvent("ev", "s", nil, nil)))

	require.Equal(t, 1, count)
	require.Zero(t, b.Metrics().SubscribersActive)
	require.NoError(t, b.Unsubscribe(nil))
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "src", nil, nil))
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)

	m := b.Metrics()
	require.EqualValues(t, 1, m.Published)
	require.EqualValues(t, 2, m.DeliveredHandlers)
	require.EqualValues(t, 1, m.Errors)
}

func TestFiltered(t *testing.T) {
	b := New()
	count := 0
	_, err := b.Subscribe(TypeTick, Filtered(func(Event) error { count++; return nil }, FromSource("guard")))
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent(TypeTick, "patrol", nil, nil)))
	require.NoError(t, b.Publish(NewEvent(TypeTick, "guard", nil, nil)))
	require.Equal(t, 1, count)
}

func TestNilHandler(t *testing.T) {
	_, err := New().Subscribe("x", nil)
	require.Error(t, err)
}
