package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akeren/clothiq-api/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewWelcomeNotifier_RequiresSender(t *testing.T) {
	notifier, err := NewWelcomeNotifier(nil, "ClothIQ <onboarding@resend.dev>", time.Second)

	assert.Nil(t, notifier)
	assert.ErrorIs(t, err, mailer.ErrNotConfigured)
}

func TestWelcomeNotifier_SendWelcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mailer.NewMockSender(ctrl)

	var sent mailer.Message
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg mailer.Message) error {
			sent = msg
			return nil
		},
	)

	notifier, err := NewWelcomeNotifier(sender, "ClothIQ <onboarding@resend.dev>", time.Second)
	require.NoError(t, err)

	require.NoError(t, notifier.SendWelcome(context.Background(), "new@example.com"))

	assert.Equal(t, "ClothIQ <onboarding@resend.dev>", sent.From)
	assert.Equal(t, []string{"new@example.com"}, sent.To)
	assert.Equal(t, "Welcome to ClothIQ Early Access!", sent.Subject)
	assert.Contains(t, sent.HTML, "Thanks for joining the ClothIQ waitlist!")
	assert.Contains(t, sent.HTML, "new@example.com")
	assert.Contains(t, sent.Text, "The ClothIQ Team")
}

func TestWelcomeNotifier_EscapesAddressInHTML(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mailer.NewMockSender(ctrl)

	var sent mailer.Message
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg mailer.Message) error {
			sent = msg
			return nil
		},
	)

	notifier, err := NewWelcomeNotifier(sender, "from@example.com", 0)
	require.NoError(t, err)

	require.NoError(t, notifier.SendWelcome(context.Background(), "<b>x</b>@example.com"))
	assert.NotContains(t, sent.HTML, "<b>x</b>")
}

func TestWelcomeNotifier_DetachedFromRequestCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mailer.NewMockSender(ctrl)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ mailer.Message) error {
			assert.NoError(t, ctx.Err())
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		},
	)

	notifier, err := NewWelcomeNotifier(sender, "from@example.com", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, notifier.SendWelcome(ctx, "new@example.com"))
}

func TestWelcomeNotifier_PropagatesSenderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mailer.NewMockSender(ctrl)
	providerErr := errors.New("provider down")
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(providerErr)

	notifier, err := NewWelcomeNotifier(sender, "from@example.com", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, notifier.SendWelcome(context.Background(), "new@example.com"), providerErr)
}
