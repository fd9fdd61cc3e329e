package storage

import (
	"testing"
	"time"

	"github.com/communitywatch/communitywatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Marshal
			data := MarshalID(tt.id)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			// Unmarshal
			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalID(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestMarshalUnmarshalIssue(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		issue *core.Issue
	}{
		{
			name: "minimal issue",
			issue: &core.Issue{
				Id:          core.ID(1),
				Category:    core.CategoryPothole,
				Description: "Pothole on 3rd avenue",
				Location:    core.Coordinates{Lat: 6.2650, Lng: 4.9250},
				Status:      core.StatusReported,
				ReporterId:  core.ID(7),
				ReportedAt:  now,
				InsertedAt:  now,
				UpdatedAt:   now,
			},
		},
		{
			name: "issue with embedding",
			issue: &core.Issue{
				Id:          core.ID(2),
				Category:    core.CategoryGraffiti,
				Description: "Tagged wall",
				Location:    core.Coordinates{Lat: -33.8688, Lng: 151.2093},
				Status:      core.StatusInProgress,
				Embedding:   []float32{0.1, 0.2, 0.3, 0.4, 0.5},
				ReporterId:  core.ID(8),
				ReportedAt:  now,
				InsertedAt:  now,
				UpdatedAt:   now,
			},
		},
		{
			name: "issue with everything",
			issue: &core.Issue{
				Id:           core.ID(3),
				Category:     core.CategoryStreetlight,
				Description:  "Streetlight flickering all night near the school entrance",
				Location:     core.Coordinates{Lat: 51.5074, Lng: -0.1278},
				LocationText: "Corner of Hill St and Park Ave",
				Status:       core.StatusResolved,
				UpvoteCount:  12,
				Embedding:    make([]float32, 1536), // typical OpenAI embedding size
				ReporterId:   core.ID(9),
				ReportedAt:   now,
				InsertedAt:   now,
				UpdatedAt:    now,
			},
		},
		{
			name: "empty description",
			issue: &core.Issue{
				Id:         core.ID(4),
				Category:   core.CategoryLitter,
				Location:   core.Coordinates{Lat: 0, Lng: 0},
				Status:     core.StatusReported,
				ReporterId: core.ID(10),
				ReportedAt: now,
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "unicode description",
			issue: &core.Issue{
				Id:          core.ID(5),
				Category:    core.CategoryOther,
				Description: "Überflutung 世界 🚧 après la pluie",
				Location:    core.Coordinates{Lat: 48.8566, Lng: 2.3522},
				Status:      core.StatusReported,
				ReporterId:  core.ID(11),
				ReportedAt:  now,
				InsertedAt:  now,
				UpdatedAt:   now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Marshal
			data := MarshalIssue(tt.issue)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			// Unmarshal
			decoded, err := UnmarshalIssue(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			// Verify fields
			assert.Equal(t, tt.issue.Id, decoded.Id)
			assert.Equal(t, tt.issue.Category, decoded.Category)
			assert.Equal(t, tt.issue.Description, decoded.Description)
			assert.Equal(t, tt.issue.Location, decoded.Location)
			assert.Equal(t, tt.issue.LocationText, decoded.LocationText)
			assert.Equal(t, tt.issue.Status, decoded.Status)
			assert.Equal(t, tt.issue.UpvoteCount, decoded.UpvoteCount)
			assert.Equal(t, tt.issue.ReporterId, decoded.ReporterId)
			assert.True(t, tt.issue.ReportedAt.Equal(decoded.ReportedAt))
			assert.True(t, tt.issue.InsertedAt.Equal(decoded.InsertedAt))
			assert.True(t, tt.issue.UpdatedAt.Equal(decoded.UpdatedAt))
			// Handle nil vs empty slice
			if len(tt.issue.Embedding) == 0 {
				assert.Empty(t, decoded.Embedding)
			} else {
				assert.Equal(t, tt.issue.Embedding, decoded.Embedding)
			}
		})
	}
}

func TestUnmarshalIssue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalIssue(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestMarshalUnmarshalUser(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		user *core.User
	}{
		{
			name: "minimal user",
			user: &core.User{
				Id:         core.ID(1),
				Username:   "ada",
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "moderator with reputation",
			user: &core.User{
				Id:               core.ID(2),
				Username:         "grace",
				Email:            "grace@example.com",
				ReputationPoints: 215,
				IsModerator:      true,
				InsertedAt:       now,
				UpdatedAt:        now,
			},
		},
		{
			name: "unicode username",
			user: &core.User{
				Id:         core.ID(3),
				Username:   "世界_reporter",
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Marshal
			data := MarshalUser(tt.user)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			// Unmarshal
			decoded, err := UnmarshalUser(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			// Verify fields
			assert.Equal(t, tt.user.Id, decoded.Id)
			assert.Equal(t, tt.user.Username, decoded.Username)
			assert.Equal(t, tt.user.Email, decoded.Email)
			assert.Equal(t, tt.user.ReputationPoints, decoded.ReputationPoints)
			assert.Equal(t, tt.user.IsModerator, decoded.IsModerator)
			assert.True(t, tt.user.InsertedAt.Equal(decoded.InsertedAt))
			assert.True(t, tt.user.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestUnmarshalUser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalUser(tt.data)
			assert.Error(t, err)
		})
	}
}
