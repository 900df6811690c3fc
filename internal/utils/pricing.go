package utils

import (
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
)

const dateLayout = "2006-01-02"

// ParseDate converts a yyyy-mm-dd formatted string into a UTC midnight time
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected yyyy-mm-dd", domain.ErrInvalidInput, dateStr)
	}
	return t, nil
}

// FormatDate renders a rental date the way clients send it
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// RentalDays returns the number of rental days between start and end.
// The end date is the return date, so 2024-01-01 to 2024-01-03 is two days.
func RentalDays(start, end time.Time) (int64, error) {
	s := truncateToDate(start)
	e := truncateToDate(end)
	if !e.After(s) {
		return 0, fmt.Errorf("%w: end date must be after start date", domain.ErrInvalidInput)
	}
	return int64(e.Sub(s).Hours() / 24), nil
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CalculateRentalCost prices a rental window at the gear's daily rate
func CalculateRentalCost(start, end time.Time, gear *domain.Gear) (int64, error) {
	if gear.DailyRateCents <= 0 {
		return 0, fmt.Errorf("%w: gear has no daily rate", domain.ErrInvalidInput)
	}
	days, err := RentalDays(start, end)
	if err != nil {
		return 0, err
	}
	return days * gear.DailyRateCents, nil
}

// ComputeFeeSplit derives every amount of a booking from its total.
// The platform fee is rounded to the nearest cent first and the owner's share takes
// whatever is left after the renter's share, so the shares always add up to the fee.
func ComputeFeeSplit(totalCents int64, policy domain.FeePolicy) domain.FeeSplit {
	platformFee := bpsOf(totalCents, policy.RenterBps+policy.OwnerBps)
	renterFee := bpsOf(totalCents, policy.RenterBps)
	if renterFee > platformFee {
		renterFee = platformFee
	}
	ownerFee := platformFee - renterFee

	return domain.FeeSplit{
		TotalCents:        totalCents,
		RenterFeeCents:    renterFee,
		OwnerFeeCents:     ownerFee,
		PlatformFeeCents:  platformFee,
		RenterAmountCents: totalCents + renterFee,
		OwnerPayoutCents:  totalCents - ownerFee,
	}
}

// bpsOf rounds half up; amounts are never negative here
func bpsOf(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
