package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules holds the booking policy knobs. It is built once at startup and
// handed to the services that need it.
type Rules struct {
	MinReputation        int `yaml:"min_reputation" json:"min_reputation"`
	DefaultReputation    int `yaml:"default_reputation" json:"default_reputation"`
	MaxDailyBookings     int `yaml:"max_daily_bookings" json:"max_daily_bookings"`
	MaxWeeklyBookingDays int `yaml:"max_weekly_booking_days" json:"max_weekly_booking_days"`

	CheckInGraceMinutes  int `yaml:"check_in_grace_minutes" json:"check_in_grace_minutes"`
	CheckOutGraceMinutes int `yaml:"check_out_grace_minutes" json:"check_out_grace_minutes"`
	CancelMinNoticeHours int `yaml:"cancel_min_notice_hours" json:"cancel_min_notice_hours"`
	ReputationPenalty    int `yaml:"reputation_penalty" json:"reputation_penalty"`

	SweepStartHour          int `yaml:"sweep_start_hour" json:"sweep_start_hour"`
	SweepEndHour            int `yaml:"sweep_end_hour" json:"sweep_end_hour"`
	SweepIntervalMinutes    int `yaml:"sweep_interval_minutes" json:"sweep_interval_minutes"`
	ReminderLeadMinutes     int `yaml:"reminder_lead_minutes" json:"reminder_lead_minutes"`
	ReminderIntervalMinutes int `yaml:"reminder_interval_minutes" json:"reminder_interval_minutes"`
}

func DefaultRules() Rules {
	return Rules{
		MinReputation:           10,
		DefaultReputation:       100,
		MaxDailyBookings:        2,
		MaxWeeklyBookingDays:    4,
		CheckInGraceMinutes:     15,
		CheckOutGraceMinutes:    15,
		CancelMinNoticeHours:    2,
		ReputationPenalty:       5,
		SweepStartHour:          7,
		SweepEndHour:            22,
		SweepIntervalMinutes:    5,
		ReminderLeadMinutes:     30,
		ReminderIntervalMinutes: 5,
	}
}

// LoadRules applies RULE_* environment overrides on top of the defaults and
// then the YAML file at path, if any.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()

	r.MinReputation = getEnvInt("RULE_MIN_REPUTATION", r.MinReputation)
	r.DefaultReputation = getEnvInt("RULE_DEFAULT_REPUTATION", r.DefaultReputation)
	r.MaxDailyBookings = getEnvInt("RULE_MAX_DAILY_BOOKINGS", r.MaxDailyBookings)
	r.MaxWeeklyBookingDays = getEnvInt("RULE_MAX_WEEKLY_BOOKING_DAYS", r.MaxWeeklyBookingDays)
	r.CheckInGraceMinutes = getEnvInt("RULE_CHECK_IN_GRACE_MINUTES", r.CheckInGraceMinutes)
	r.CheckOutGraceMinutes = getEnvInt("RULE_CHECK_OUT_GRACE_MINUTES", r.CheckOutGraceMinutes)
	r.CancelMinNoticeHours = getEnvInt("RULE_CANCEL_MIN_NOTICE_HOURS", r.CancelMinNoticeHours)
	r.ReputationPenalty = getEnvInt("RULE_REPUTATION_PENALTY", r.ReputationPenalty)
	r.SweepStartHour = getEnvInt("RULE_SWEEP_START_HOUR", r.SweepStartHour)
	r.SweepEndHour = getEnvInt("RULE_SWEEP_END_HOUR", r.SweepEndHour)
	r.SweepIntervalMinutes = getEnvInt("RULE_SWEEP_INTERVAL_MINUTES", r.SweepIntervalMinutes)
	r.ReminderLeadMinutes = getEnvInt("RULE_REMINDER_LEAD_MINUTES", r.ReminderLeadMinutes)
	r.ReminderIntervalMinutes = getEnvInt("RULE_REMINDER_INTERVAL_MINUTES", r.ReminderIntervalMinutes)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Rules{}, fmt.Errorf("read rules file: %w", err)
		}
		if err := yaml.Unmarshal(data, &r); err != nil {
			return Rules{}, fmt.Errorf("parse rules file: %w", err)
		}
	}

	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) Validate() error {
	var errs []error
	nonNegative := map[string]int{
		"min_reputation":          r.MinReputation,
		"default_reputation":      r.DefaultReputation,
		"max_daily_bookings":      r.MaxDailyBookings,
		"max_weekly_booking_days": r.MaxWeeklyBookingDays,
		"check_in_grace_minutes":  r.CheckInGraceMinutes,
		"check_out_grace_minutes": r.CheckOutGraceMinutes,
		"cancel_min_notice_hours": r.CancelMinNoticeHours,
		"reputation_penalty":      r.ReputationPenalty,
		"reminder_lead_minutes":   r.ReminderLeadMinutes,
	}
	for name, v := range nonNegative {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if r.MaxWeeklyBookingDays > 7 {
		errs = append(errs, fmt.Errorf("max_weekly_booking_days cannot exceed 7, got %d", r.MaxWeeklyBookingDays))
	}
	if r.SweepStartHour < 0 || r.SweepEndHour > 24 || r.SweepStartHour >= r.SweepEndHour {
		errs = append(errs, fmt.Errorf("sweep window [%d, %d) is empty or out of range", r.SweepStartHour, r.SweepEndHour))
	}
	if r.SweepIntervalMinutes <= 0 {
		errs = append(errs, errors.New("sweep_interval_minutes must be positive"))
	}
	if r.ReminderIntervalMinutes <= 0 {
		errs = append(errs, errors.New("reminder_interval_minutes must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	return nil
}

func (r Rules) CheckInGrace() time.Duration {
	return time.Duration(r.CheckInGraceMinutes) * time.Minute
}

func (r Rules) CheckOutGrace() time.Duration {
	return time.Duration(r.CheckOutGraceMinutes) * time.Minute
}

func (r Rules) CancelMinNotice() time.Duration {
	return time.Duration(r.CancelMinNoticeHours) * time.Hour
}

func (r Rules) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalMinutes) * time.Minute
}

func (r Rules) ReminderInterval() time.Duration {
	return time.Duration(r.ReminderIntervalMinutes) * time.Minute
}

func (r Rules) ReminderLead() time.Duration {
	return time.Duration(r.ReminderLeadMinutes) * time.Minute
}

// InSweepWindow reports whether t falls in [SweepStartHour, SweepEndHour).
func (r Rules) InSweepWindow(t time.Time) bool {
	h := t.Hour()
	return h >= r.SweepStartHour && h < r.SweepEndHour
}
