package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationIsActive(t *testing.T) {
	today := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	now := today.Add(10 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		n    Notification
		want bool
	}{
		{"plain", Notification{}, true},
		{"acknowledged", Notification{AcknowledgedAt: &past}, false},
		{"snoozed until tomorrow", Notification{SnoozedUntil: &tomorrow}, false},
		{"snooze ends today", Notification{SnoozedUntil: &today}, true},
		{"snooze elapsed", Notification{SnoozedUntil: &yesterday}, true},
		{"expired", Notification{ExpiresAt: &past}, false},
		{"not yet expired", Notification{ExpiresAt: &future}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.n.IsActive(today, now))
		})
	}
}

func TestNotificationPayloadApply_ReportsChanges(t *testing.T) {
	p := NotificationPayload{Key: "k", Category: CategoryDeadline, Level: LevelDanger, Title: "t", Body: "b"}
	n := &Notification{}
	assert.True(t, p.Apply(n))
	assert.False(t, p.Apply(n))

	p.Body = "changed"
	assert.True(t, p.Apply(n))
	assert.Equal(t, "changed", n.Body)
}
