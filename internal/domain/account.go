package domain

import (
	"context"
	"errors"

	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm"
)

type AccountDomain interface {
	Register(context.Context, *model.RegisterAccountRequest) (*model.RegisterAccountResponse, error)
	MarkDeparted(context.Context, *model.MarkDepartedRequest) (*model.MarkDepartedResponse, error)
}

type accountDomain struct {
	accountRepo repository.AccountRepository
}

func NewAccountDomain(accountRepo repository.AccountRepository) *accountDomain {
	return &accountDomain{accountRepo: accountRepo}
}

// Register creates the account on first contact and brings a departed
// account back when its holder returns.
func (d *accountDomain) Register(
	ctx context.Context, req *model.RegisterAccountRequest,
) (*model.RegisterAccountResponse, error) {
	if req.Account.ID == 0 {
		return nil, errorx.New(errorx.BadRequest, "Missing account")
	}

	account := accountFromSnapshot(req.Account)
	if err := d.accountRepo.Upsert(ctx, account); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert account %d: %v", req.Account.ID, err)
		return nil, errorx.Unknown
	}

	return &model.RegisterAccountResponse{Account: convertAccount(account)}, nil
}

func (d *accountDomain) MarkDeparted(
	ctx context.Context, req *model.MarkDepartedRequest,
) (*model.MarkDepartedResponse, error) {
	if err := d.accountRepo.MarkDeparted(ctx, req.AccountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found account")
		}

		xcontext.Logger(ctx).Errorf("Cannot mark account %d departed: %v", req.AccountID, err)
		return nil, errorx.Unknown
	}

	return &model.MarkDepartedResponse{}, nil
}
