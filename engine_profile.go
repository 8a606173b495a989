package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patientalert/authcore/store"
)

const dateLayout = "2006-01-02"

const (
	pregnancyWeekMin = 1
	pregnancyWeekMax = 42
	gestationDays    = 280
)

// CompleteProfile merges the supplied fields into the account's health
// profile and recomputes the derived values: age from date of birth,
// pregnancy week and expected delivery date from the last period date.
// Fields left empty in the update keep their stored values.
func (e *Engine) CompleteProfile(ctx context.Context, accountID string, upd ProfileUpdate) (*CompleteProfileResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id required", ErrInvalidInput)
	}
	if err := validateProfileDates(&upd); err != nil {
		return nil, err
	}

	now := e.now()
	var updated store.Account
	err := e.accounts.UpdateAccount(ctx, accountID, func(acct *store.Account) {
		mergeProfile(acct, &upd)
		deriveProfile(acct, now)
		acct.UpdatedAt = now.Unix()
		updated = *acct
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	e.metrics.inc(MetricProfileCompleted)
	e.emitAudit(ctx, auditEventProfileComplete, accountID, updated.Role, "", true, nil, map[string]string{
		"profile_complete": fmt.Sprintf("%t", isProfileComplete(&updated)),
	})

	return &CompleteProfileResult{
		AccountID:            accountID,
		IsProfileComplete:    isProfileComplete(&updated),
		Age:                  updated.Age,
		PregnancyWeek:        updated.PregnancyWeek,
		ExpectedDeliveryDate: updated.ExpectedDeliveryDate,
	}, nil
}

// Profile returns the account document with credentials redacted.
func (e *Engine) Profile(ctx context.Context, accountID string) (*store.Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acct, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	redacted := *acct
	redacted.PasswordHash = ""
	redacted.Code = ""
	redacted.CodeIssuedAt = 0
	redacted.CodeExpiresAt = 0
	return &redacted, nil
}

func validateProfileDates(upd *ProfileUpdate) error {
	for _, d := range []struct {
		name, value string
	}{
		{"date_of_birth", upd.DateOfBirth},
		{"last_period_date", upd.LastPeriodDate},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d.value); err != nil {
			return fmt.Errorf("%w: %s must use the %s layout", ErrInvalidInput, d.name, dateLayout)
		}
	}
	return nil
}

func mergeProfile(acct *store.Account, upd *ProfileUpdate) {
	if upd.FirstName != "" {
		acct.FirstName = upd.FirstName
	}
	if upd.LastName != "" {
		acct.LastName = upd.LastName
	}
	if upd.DateOfBirth != "" {
		acct.DateOfBirth = upd.DateOfBirth
	}
	if upd.BloodType != "" {
		acct.BloodType = upd.BloodType
	}
	if upd.Weight != "" {
		acct.Weight = upd.Weight
	}
	if upd.Height != "" {
		acct.Height = upd.Height
	}
	if upd.IsPregnant != nil {
		acct.IsPregnant = *upd.IsPregnant
	}
	if upd.LastPeriodDate != "" {
		acct.LastPeriodDate = upd.LastPeriodDate
	}
	if upd.EmergencyName != "" {
		acct.EmergencyName = upd.EmergencyName
	}
	if upd.EmergencyRelationship != "" {
		acct.EmergencyRelationship = upd.EmergencyRelationship
	}
	if upd.EmergencyPhone != "" {
		acct.EmergencyPhone = upd.EmergencyPhone
	}
}

// deriveProfile recomputes the server-owned fields from their inputs. It
// runs on every profile write so the derived values can never go stale
// relative to the fields they are computed from.
func deriveProfile(acct *store.Account, now time.Time) {
	if acct.DateOfBirth != "" {
		if dob, err := time.Parse(dateLayout, acct.DateOfBirth); err == nil {
			acct.Age = calendarAge(dob, now)
		}
	}

	if !acct.IsPregnant {
		acct.PregnancyWeek = 0
		acct.ExpectedDeliveryDate = ""
		return
	}
	if acct.LastPeriodDate == "" {
		return
	}
	lmp, err := time.Parse(dateLayout, acct.LastPeriodDate)
	if err != nil {
		return
	}
	days := int(now.Sub(lmp).Hours() / 24)
	acct.PregnancyWeek = clampWeek(days / 7)
	acct.ExpectedDeliveryDate = lmp.AddDate(0, 0, gestationDays).Format(dateLayout)
}

// calendarAge is whole years elapsed, decremented when the birthday has not
// yet occurred this year.
func calendarAge(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func clampWeek(week int) int {
	if week < pregnancyWeekMin {
		return pregnancyWeekMin
	}
	if week > pregnancyWeekMax {
		return pregnancyWeekMax
	}
	return week
}
