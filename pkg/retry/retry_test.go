package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	b := &Linear{Base: time.Second}
	require.Equal(t, time.Second, b.NextBackOff())
	require.Equal(t, 2*time.Second, b.NextBackOff())
	require.Equal(t, 3*time.Second, b.NextBackOff())

	b.Reset()
	require.Equal(t, time.Second, b.NextBackOff())
}

func TestDo(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")

	testCases := []struct {
		name         string
		failures     int
		permanent    bool
		wantErr      error
		wantAttempts int
	}{
		{name: "first attempt succeeds", failures: 0, wantAttempts: 1},
		{name: "third attempt succeeds", failures: 2, wantAttempts: 3},
		{name: "all attempts fail", failures: 5, wantErr: errTransient, wantAttempts: 3},
		{name: "permanent error stops", failures: 5, permanent: true, wantErr: errFatal, wantAttempts: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond}, func() error {
				attempts++
				if attempts > tc.failures {
					return nil
				}

				if tc.permanent {
					return Permanent(errFatal)
				}

				return errTransient
			})

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantAttempts, attempts)
		})
	}
}
