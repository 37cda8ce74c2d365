package library

import "testing"

func TestStatsActivityPercent(t *testing.T) {
	tests := []struct {
		name         string
		stats        Stats
		wantActive   int
		wantInactive int
	}{
		{name: "Three of four active", stats: Stats{TotalUsers: 4, ActiveUsers: 3}, wantActive: 75, wantInactive: 25},
		{name: "Rounds to whole percent", stats: Stats{TotalUsers: 3, ActiveUsers: 2}, wantActive: 67, wantInactive: 33},
		{name: "All active", stats: Stats{TotalUsers: 5, ActiveUsers: 5}, wantActive: 100, wantInactive: 0},
		{name: "No users", stats: Stats{}, wantActive: 0, wantInactive: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, inactive := tt.stats.ActivityPercent()
			if active != tt.wantActive || inactive != tt.wantInactive {
				t.Errorf("ActivityPercent() = %d, %d, want %d, %d", active, inactive, tt.wantActive, tt.wantInactive)
			}
		})
	}
}
