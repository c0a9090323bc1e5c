package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestIsGenuineAccount(t *testing.T) {
	testCases := []struct {
		name         string
		snapshot     model.AccountSnapshot
		hasPhoto     bool
		want         bool
		wantPhotoHit bool
	}{
		{
			name:     "deleted account",
			snapshot: model.AccountSnapshot{Handle: "alice", IsDeleted: true},
			hasPhoto: true,
			want:     false,
		},
		{
			name:     "handle",
			snapshot: model.AccountSnapshot{Handle: "alice"},
			want:     true,
		},
		{
			name:     "long enough name",
			snapshot: model.AccountSnapshot{FirstName: "Al", LastName: "B"},
			want:     true,
		},
		{
			name:     "multibyte name",
			snapshot: model.AccountSnapshot{FirstName: "Тим"},
			want:     true,
		},
		{
			name:         "short name with photo",
			snapshot:     model.AccountSnapshot{FirstName: " Al "},
			hasPhoto:     true,
			want:         true,
			wantPhotoHit: true,
		},
		{
			name:         "short name without photo",
			snapshot:     model.AccountSnapshot{FirstName: "Al", Handle: "  "},
			want:         false,
			wantPhotoHit: true,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			photoHit := false
			got := IsGenuineAccount(tt.snapshot, func() bool {
				photoHit = true
				return tt.hasPhoto
			})

			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantPhotoHit, photoHit)
		})
	}
}

func Test_realityHeuristic_LookupFailure(t *testing.T) {
	ctx := testutil.MockContext()
	caller := testutil.NewMockTelegramCaller()
	caller.HasProfilePhotoFunc = func(ctx context.Context, accountID int64) (bool, error) {
		return true, errors.New("timeout")
	}

	heuristic := NewRealityHeuristic(caller)
	require.False(t, heuristic.IsGenuine(ctx, model.AccountSnapshot{ID: 1, FirstName: "A"}))
	require.Equal(t, 1, caller.PhotoCalls)
}
