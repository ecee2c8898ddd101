package store

import "time"

// sampleChats seeds a store that has nothing persisted yet.
func sampleChats(now time.Time) []*Chat {
	hourAgo := now.Add(-time.Hour).UnixMilli()
	return []*Chat{
		{
			ID:        "1",
			Title:     "Project ideas",
			UpdatedAt: hourAgo,
			Messages: []*Message{
				{
					ID:        "m1",
					Role:      RoleUser,
					Text:      "Give me 5 project ideas for a portfolio.",
					CreatedAt: hourAgo,
					Status:    StatusResolved,
				},
				{
					ID:        "m2",
					Role:      RoleAssistant,
					Text:      "Sure — a real-time chat app, personal finance dashboard, and more.",
					CreatedAt: hourAgo + 1000,
					Status:    StatusResolved,
				},
			},
		},
	}
}
