package service

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeTx struct{ calls int }

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeUsers struct {
	byID    map[int64]*model.User
	ledger  []*model.ReputationChange
	resets  map[string]*model.PasswordReset
	nextID  int64
	failFor map[int64]error
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{
		byID:    make(map[int64]*model.User),
		resets:  make(map[string]*model.PasswordReset),
		failFor: make(map[int64]error),
	}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	for _, u := range f.byID {
		if u.Code == user.Code || u.Email == user.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) GetByCode(_ context.Context, code string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Code == code {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) List(_ context.Context, role model.Role) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.byID {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID int64, hash string) error {
	f.byID[userID].PasswordHash = hash
	return nil
}

func (f *fakeUsers) SetTelegramChatID(_ context.Context, code string, chatID int64) (*model.User, error) {
	for _, u := range f.byID {
		if u.Code == code {
			u.TelegramChatID = &chatID
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByTelegramChatID(_ context.Context, chatID int64) (*model.User, error) {
	for _, u := range f.byID {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) CreatePasswordReset(_ context.Context, reset *model.PasswordReset) error {
	f.resets[reset.Token] = reset
	return nil
}

func (f *fakeUsers) GetPasswordReset(_ context.Context, token string) (*model.PasswordReset, error) {
	return f.resets[token], nil
}

func (f *fakeUsers) MarkPasswordResetUsed(_ context.Context, token string, at time.Time) (bool, error) {
	r, ok := f.resets[token]
	if !ok || r.UsedAt != nil {
		return false, nil
	}
	r.UsedAt = &at
	return true, nil
}

func (f *fakeUsers) AdjustReputation(_ context.Context, userID int64, delta int, reason string) (*model.ReputationChange, error) {
	if err := f.failFor[userID]; err != nil {
		return nil, err
	}
	u, ok := f.byID[userID]
	if !ok {
		return nil, nil
	}
	u.Reputation = max(0, u.Reputation+delta)
	change := &model.ReputationChange{
		ID:           int64(len(f.ledger) + 1),
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: u.Reputation,
	}
	f.ledger = append(f.ledger, change)
	return change, nil
}

func (f *fakeUsers) ListReputationChanges(_ context.Context, userID int64, limit int) ([]*model.ReputationChange, error) {
	var out []*model.ReputationChange
	for i := len(f.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if f.ledger[i].UserID == userID {
			out = append(out, f.ledger[i])
		}
	}
	return out, nil
}

type fakeRooms struct {
	byID map[int64]*model.Room
}

func newFakeRooms(rooms ...*model.Room) *fakeRooms {
	f := &fakeRooms{byID: make(map[int64]*model.Room)}
	for _, r := range rooms {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeRooms) Create(_ context.Context, room *model.Room) error {
	room.ID = int64(len(f.byID) + 1)
	f.byID[room.ID] = room
	return nil
}

func (f *fakeRooms) GetByID(_ context.Context, id int64) (*model.Room, error) {
	return f.byID[id], nil
}

func (f *fakeRooms) List(_ context.Context) ([]*model.Room, error) {
	var out []*model.Room
	for _, r := range f.byID {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRooms) Update(_ context.Context, room *model.Room) error {
	f.byID[room.ID] = room
	return nil
}

func (f *fakeRooms) ListFree(_ context.Context, _ time.Time, _ int64) ([]*model.Room, error) {
	return f.List(context.Background())
}

type fakeSlots struct {
	byID map[int64]*model.Slot
}

func newFakeSlots(slots ...*model.Slot) *fakeSlots {
	f := &fakeSlots{byID: make(map[int64]*model.Slot)}
	for _, s := range slots {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeSlots) Create(_ context.Context, slot *model.Slot) error {
	slot.ID = int64(len(f.byID) + 1)
	f.byID[slot.ID] = slot
	return nil
}

func (f *fakeSlots) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	return f.byID[id], nil
}

func (f *fakeSlots) List(_ context.Context) ([]*model.Slot, error) {
	var out []*model.Slot
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSlots) UpdateStatus(_ context.Context, slotID int64, status model.SlotStatus) error {
	f.byID[slotID].Status = status
	return nil
}

type fakeBookings struct {
	byID       map[int64]*model.Booking
	slots      *fakeSlots
	nextID     int64
	createErr  error
	failTransi map[int64]error
}

func newFakeBookings(slots *fakeSlots, bookings ...*model.Booking) *fakeBookings {
	f := &fakeBookings{byID: make(map[int64]*model.Booking), slots: slots, failTransi: make(map[int64]error)}
	for _, b := range bookings {
		f.put(b)
	}
	return f
}

func (f *fakeBookings) put(b *model.Booking) {
	if b.ID == 0 {
		f.nextID++
		b.ID = f.nextID
	} else if b.ID > f.nextID {
		f.nextID = b.ID
	}
	if b.Slot == nil && f.slots != nil {
		b.Slot = f.slots.byID[b.SlotID]
	}
	f.byID[b.ID] = b
}

func (f *fakeBookings) sorted(keep func(*model.Booking) bool) []*model.Booking {
	var out []*model.Booking
	for _, b := range f.byID {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeBookings) Create(_ context.Context, booking *model.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	booking.CreatedAt = time.Now()
	f.put(booking)
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	return f.byID[id], nil
}

func (f *fakeBookings) ListByDateAndStatuses(_ context.Context, date time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	return f.sorted(func(b *model.Booking) bool {
		if !b.Date.Equal(date) {
			return false
		}
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeBookings) CountActiveForUserOnDate(_ context.Context, userID int64, date time.Time) (int, error) {
	return len(f.sorted(func(b *model.Booking) bool {
		return b.Status.IsActive() && b.Date.Equal(date) && b.HasParticipant(userID)
	})), nil
}

func (f *fakeBookings) CountActiveDaysForUser(_ context.Context, userID int64, from, to time.Time) (int, error) {
	days := make(map[time.Time]bool)
	for _, b := range f.byID {
		if b.Status.IsActive() && b.HasParticipant(userID) && !b.Date.Before(from) && !b.Date.After(to) {
			days[b.Date] = true
		}
	}
	return len(days), nil
}

func (f *fakeBookings) Transition(_ context.Context, id int64, from, to model.BookingStatus, at time.Time) (bool, error) {
	if err := f.failTransi[id]; err != nil {
		return false, err
	}
	b, ok := f.byID[id]
	if !ok || b.Status != from {
		return false, nil
	}
	if from == model.BookingStatusBooked && b.CheckedInAt != nil {
		return false, nil
	}
	b.Status = to
	switch to {
	case model.BookingStatusCheckedIn:
		b.CheckedInAt = &at
	case model.BookingStatusCheckedOut:
		b.CheckedOutAt = &at
	}
	return true, nil
}

func (f *fakeBookings) ListPendingCheckIn(_ context.Context, onOrBefore time.Time) ([]*model.Booking, error) {
	return f.sorted(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusBooked && b.CheckedInAt == nil && !b.Date.After(onOrBefore)
	}), nil
}

func (f *fakeBookings) ListReminderCandidates(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	return f.sorted(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusBooked && !b.ReminderSent && !b.Date.Before(from) && !b.Date.After(to)
	}), nil
}

func (f *fakeBookings) MarkReminderSent(_ context.Context, id int64) (bool, error) {
	b, ok := f.byID[id]
	if !ok || b.ReminderSent {
		return false, nil
	}
	b.ReminderSent = true
	return true, nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID int64) ([]*model.Booking, error) {
	return f.sorted(func(b *model.Booking) bool {
		return b.CreatorID == userID || b.HasParticipant(userID)
	}), nil
}

func (f *fakeBookings) ListInRange(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	return f.sorted(func(b *model.Booking) bool {
		return !b.Date.Before(from) && !b.Date.After(to)
	}), nil
}

func (f *fakeBookings) ListByRoomInRange(_ context.Context, roomID int64, from, to time.Time) ([]*model.Booking, error) {
	return f.sorted(func(b *model.Booking) bool {
		return b.RoomID == roomID && !b.Date.Before(from) && !b.Date.After(to)
	}), nil
}

type fakeRatings struct {
	items []*model.Rating
}

func (f *fakeRatings) Create(_ context.Context, rating *model.Rating) error {
	rating.ID = int64(len(f.items) + 1)
	f.items = append(f.items, rating)
	return nil
}

func (f *fakeRatings) Exists(_ context.Context, bookingID, studentID int64) (bool, error) {
	for _, r := range f.items {
		if r.BookingID == bookingID && r.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRatings) ListByRoom(_ context.Context, _ int64) ([]*model.Rating, error) {
	return f.items, nil
}

type fakeReports struct {
	byID map[int64]*model.Report
}

func newFakeReports(reports ...*model.Report) *fakeReports {
	f := &fakeReports{byID: make(map[int64]*model.Report)}
	for _, r := range reports {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeReports) Create(_ context.Context, report *model.Report) error {
	report.ID = int64(len(f.byID) + 1)
	report.CreatedAt = time.Now()
	f.byID[report.ID] = report
	return nil
}

func (f *fakeReports) GetByID(_ context.Context, id int64) (*model.Report, error) {
	return f.byID[id], nil
}

func (f *fakeReports) List(_ context.Context, status model.ReportStatus) ([]*model.Report, error) {
	var out []*model.Report
	for _, r := range f.byID {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) Resolve(_ context.Context, id, staffID int64, resolution string, at time.Time) (bool, error) {
	r, ok := f.byID[id]
	if !ok || r.Status != model.ReportStatusOpen {
		return false, nil
	}
	r.Status = model.ReportStatusResolved
	r.Resolution = resolution
	r.ResolvedBy = &staffID
	r.ResolvedAt = &at
	return true, nil
}

type sentMessage struct {
	UserID  int64
	Subject string
	Body    string
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, user *model.User, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{UserID: user.ID, Subject: subject, Body: body})
	return nil
}

// fixture wires the booking services over shared fakes.
type fixture struct {
	rules    config.Rules
	clock    time.Time
	tx       *fakeTx
	users    *fakeUsers
	rooms    *fakeRooms
	slots    *fakeSlots
	bookings *fakeBookings
	reports  *fakeReports
	notifier *fakeNotifier
	logs     *observer.ObservedLogs

	reputation *ReputationService
	booking    *BookingService
	sweep      *SweepService
}

var testDay = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func student(id int64, code string, reputation int) *model.User {
	return &model.User{ID: id, Code: code, Email: code + "@uni.test", Role: model.RoleStudent, Reputation: reputation}
}

func newFixture() *fixture {
	f := &fixture{
		rules: config.DefaultRules(),
		clock: time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC),
		tx:    &fakeTx{},
		users: newFakeUsers(
			student(1, "S001", 100),
			student(2, "S002", 100),
			student(3, "S003", 100),
			student(4, "S004", 5),
			&model.User{ID: 10, Code: "L010", Role: model.RoleStaff, Reputation: 100},
		),
		rooms: newFakeRooms(
			&model.Room{ID: 1, Name: "A-101", Capacity: 2, Status: model.RoomStatusActive},
			&model.Room{ID: 2, Name: "A-102", Capacity: 6, Status: model.RoomStatusActive},
			&model.Room{ID: 3, Name: "B-201", Capacity: 4, Status: model.RoomStatusMaintenance},
		),
		slots: newFakeSlots(
			&model.Slot{ID: 1, Ordinal: 1, Status: model.SlotStatusActive,
				StartTime: model.NewTimeOfDay(9, 0), EndTime: model.NewTimeOfDay(11, 0)},
			&model.Slot{ID: 2, Ordinal: 2, Status: model.SlotStatusActive,
				StartTime: model.NewTimeOfDay(13, 0), EndTime: model.NewTimeOfDay(15, 0)},
			&model.Slot{ID: 3, Ordinal: 3, Status: model.SlotStatusInactive,
				StartTime: model.NewTimeOfDay(16, 0), EndTime: model.NewTimeOfDay(18, 0)},
		),
		reports:  newFakeReports(),
		notifier: &fakeNotifier{},
	}
	f.bookings = newFakeBookings(f.slots)

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	f.logs = logs
	now := func() time.Time { return f.clock }

	f.reputation = NewReputationService(f.tx, f.users, f.bookings, f.reports, time.UTC, logger)
	f.booking = NewBookingService(f.tx, f.users, f.rooms, f.slots, f.bookings, f.reputation, f.rules, time.UTC, logger)
	f.booking.now = now
	f.sweep = NewSweepService(f.tx, f.users, f.bookings, f.reputation, f.notifier, f.rules, time.UTC, logger)
	f.sweep.now = now
	return f
}

// withRules rebuilds the services with modified rules.
func (f *fixture) withRules(mutate func(r *config.Rules)) *fixture {
	mutate(&f.rules)
	f.booking.rules = f.rules
	f.sweep.rules = f.rules
	return f
}

func (f *fixture) addBooking(b *model.Booking) *model.Booking {
	if b.Date.IsZero() {
		b.Date = testDay
	}
	if b.Status == "" {
		b.Status = model.BookingStatusBooked
	}
	f.bookings.put(b)
	return b
}
