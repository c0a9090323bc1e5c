package common

import (
	"context"
	"errors"

	"github.com/questx-lab/referral/pkg/xcontext"
	"golang.org/x/exp/slices"
)

type OperatorVerifier struct{}

func NewOperatorVerifier() *OperatorVerifier {
	return &OperatorVerifier{}
}

// Verify returns an error if accountID is not one of the configured
// operators.
func (verifier *OperatorVerifier) Verify(ctx context.Context, accountID int64) error {
	operators := xcontext.Configs(ctx).Referral.OperatorIDs
	if len(operators) == 0 {
		return errors.New("no operator is configured")
	}

	if !slices.Contains(operators, accountID) {
		return errors.New("account is not an operator")
	}

	return nil
}
