package testutil

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/idutil"
)

// SampleAccount creates an account with the given id. The sample can be
// overwritten by non-zero fields of init.
func SampleAccount(ctx context.Context, id int64, init *entity.Account) (entity.Account, error) {
	sample := &entity.Account{
		ID:        id,
		FirstName: fmt.Sprintf("first%d", id),
		LastName:  fmt.Sprintf("last%d", id),
		Handle:    fmt.Sprintf("handle%d", id),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := repository.NewAccountRepository().Upsert(ctx, sample); err != nil {
		return *sample, err
	}

	if init != nil && init.Departed {
		if err := repository.NewAccountRepository().MarkDeparted(ctx, id); err != nil {
			return *sample, err
		}
		sample.Departed = true
	}

	return *sample, nil
}

// SampleEdge creates the referred account if needed and an edge from
// referrerID to it, bypassing the domain checks.
func SampleEdge(
	ctx context.Context,
	referrerID, referredID int64,
	status entity.ReferralStatus,
	isGenuine bool,
) (entity.ReferralEdge, error) {
	if _, err := SampleAccount(ctx, referredID, nil); err != nil {
		return entity.ReferralEdge{}, err
	}

	edge := &entity.ReferralEdge{
		SnowFlakeBase:  entity.SnowFlakeBase{ID: idutil.NewID()},
		ReferrerID:     referrerID,
		ReferredID:     referredID,
		ReferredHandle: fmt.Sprintf("handle%d", referredID),
		Status:         status,
		IsGenuine:      isGenuine,
	}

	if err := repository.NewReferralRepository().Create(ctx, edge); err != nil {
		return *edge, err
	}

	return *edge, nil
}

func SampleClaim(
	ctx context.Context, accountID int64, destination, credential string, count int,
) (entity.CurrentCycleClaim, error) {
	claim := &entity.CurrentCycleClaim{
		AccountID:       accountID,
		Destination:     destination,
		Credential:      credential,
		QualifyingCount: count,
		SubmittedAt:     time.Now(),
	}

	if err := repository.NewClaimRepository().Upsert(ctx, claim); err != nil {
		return *claim, err
	}

	return *claim, nil
}

func SampleWeeklyRecord(
	ctx context.Context, cycle int, accountID int64, destination, credential string, count int,
) (entity.WeeklyRecord, error) {
	record := entity.WeeklyRecord{
		SnowFlakeBase:   entity.SnowFlakeBase{ID: idutil.NewID()},
		Cycle:           cycle,
		AccountID:       accountID,
		Destination:     destination,
		Credential:      credential,
		QualifyingCount: count,
		SubmittedAt:     time.Now(),
	}

	err := repository.NewWeeklyRecordRepository().CreateMany(ctx, []entity.WeeklyRecord{record})
	return record, err
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if !overwriteField.IsZero() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}
