package quota

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDailyLimit is the number of free conversions per local calendar day
// for anonymous users.
const DefaultDailyLimit = 5

// How the stored date key identifies a local calendar day.
const dateKeyFormat = "2006-01-02"

// UsageRecord is the persisted per-day usage counter. A single row exists in
// the local DB; crossing a day boundary replaces DateKey and resets Count.
type UsageRecord struct {
	ID      uint   `json:"id" gorm:"primarykey"`
	DateKey string `json:"date_key"`
	Count   int    `json:"count"`
}

// Store is the injected persistence capability for the usage record. Update
// must apply the mutation atomically with respect to other writers.
type Store interface {
	Get() (UsageRecord, error)
	Update(func(UsageRecord) UsageRecord) error
	Reset() error
}

// Tracker enforces the per-day conversion limit for anonymous users.
// Authenticated users are always unmetered.
type Tracker struct {
	store Store
	limit int
	now   func() time.Time

	// Optional logger for swallowed storage failures. Nil disables logging.
	Logger *logrus.Logger
}

func NewTracker(store Store, limit int) *Tracker {
	return &Tracker{store: store, limit: limit, now: time.Now}
}

func (t *Tracker) dateKey() string {
	return t.now().Format(dateKeyFormat)
}

func (t *Tracker) logSwallowedError(op string, err error) {
	if t.Logger != nil {
		t.Logger.Warnf("quota: treating usage record as empty after %s failed: %v", op, err)
	}
}

// load reads the current record, applying the lazy day rollover: a stored date
// key other than today's means the stored count no longer applies. Storage
// failures degrade to an empty record and are never surfaced.
func (t *Tracker) load() UsageRecord {
	today := t.dateKey()
	rec, err := t.store.Get()
	if err != nil {
		t.logSwallowedError("read", err)
		return UsageRecord{DateKey: today}
	}
	if rec.DateKey != today {
		return UsageRecord{DateKey: today}
	}
	return rec
}

// Limit is the answer to "is another conversion allowed". Remaining and Max
// are nil for authenticated (unmetered) callers.
type Limit struct {
	Allowed   bool
	Used      int
	Remaining *int
	Max       *int
}

func (t *Tracker) CheckLimit(isAuthenticated bool) Limit {
	if isAuthenticated {
		return Limit{Allowed: true}
	}
	rec := t.load()
	remaining := t.limit - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	limit := t.limit
	return Limit{
		Allowed:   remaining > 0,
		Used:      rec.Count,
		Remaining: &remaining,
		Max:       &limit,
	}
}

// IncrementCount records one completed conversion. It is a no-op for
// authenticated callers and it never mutates the record for them. Storage
// failures are swallowed.
func (t *Tracker) IncrementCount(isAuthenticated bool) {
	if isAuthenticated {
		return
	}
	today := t.dateKey()
	err := t.store.Update(func(rec UsageRecord) UsageRecord {
		if rec.DateKey != today {
			rec = UsageRecord{DateKey: today}
		}
		rec.Count += 1
		return rec
	})
	if err != nil {
		t.logSwallowedError("write", err)
	}
}

type StatusKind string

const (
	StatusUnlimited    StatusKind = "unlimited"
	StatusLimitReached StatusKind = "limit_reached"
	StatusWarning      StatusKind = "warning"
	StatusNormal       StatusKind = "normal"
)

// Status is the user-facing quota descriptor. Used and Max are only
// meaningful for metered (non-unlimited) statuses.
type Status struct {
	Kind    StatusKind
	Message string
	Used    int
	Max     int
}

func (t *Tracker) GetStatus(isAuthenticated bool) Status {
	if isAuthenticated {
		return Status{Kind: StatusUnlimited, Message: "Unlimited conversions"}
	}
	lim := t.CheckLimit(false)
	remaining := *lim.Remaining
	switch {
	case remaining == 0:
		return Status{
			Kind:    StatusLimitReached,
			Message: fmt.Sprintf("Daily limit reached (%d/%d conversions used). Log in for unlimited conversions.", lim.Used, *lim.Max),
			Used:    lim.Used,
			Max:     *lim.Max,
		}
	case remaining <= 2:
		return Status{
			Kind:    StatusWarning,
			Message: fmt.Sprintf("Only %d free conversion(s) left today (%d/%d used)", remaining, lim.Used, *lim.Max),
			Used:    lim.Used,
			Max:     *lim.Max,
		}
	default:
		return Status{
			Kind:    StatusNormal,
			Message: fmt.Sprintf("%d of %d free conversions used today", lim.Used, *lim.Max),
			Used:    lim.Used,
			Max:     *lim.Max,
		}
	}
}

// ResetInfo describes when the daily counter rolls over.
type ResetInfo struct {
	HoursUntilReset int
	ResetTimeLabel  string
}

// GetRemainingTime reports the ceiling of hours between now and the next local
// midnight, which is when the lazy rollover will observe a new date key.
func (t *Tracker) GetRemainingTime() ResetInfo {
	now := t.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	hours := int(math.Ceil(midnight.Sub(now).Hours()))
	return ResetInfo{
		HoursUntilReset: hours,
		ResetTimeLabel:  midnight.Format("Jan 2 15:04"),
	}
}

// Reset clears the stored usage record. Debug/test use only.
func (t *Tracker) Reset() error {
	return t.store.Reset()
}
