package stats

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// Shift is an upcoming scheduled slot: an approved application for a job that
// has not run yet.
type Shift struct {
	JobID uuid.UUID `json:"jobId"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Store provides the read-only views the aggregator projects over. Both
// listings are bounded by a [from, to) window on the shift start.
type Store interface {
	ListTimeRegistrations(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]models.TimeRegistration, error)
	ListUpcomingShifts(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]Shift, error)
}

// WeeklyStats is a per-week rollup for a single worker. DailyHours always
// carries an entry for every day of the queried week, zeroed when nothing
// happened on that day.
type WeeklyStats struct {
	WorkerID      uuid.UUID          `json:"workerId"`
	WeekStart     time.Time          `json:"weekStart"`
	WorkedHours   float64            `json:"workedHours"`
	UpcomingHours float64            `json:"upcomingHours"`
	DailyHours    map[string]float64 `json:"dailyHours"`
	CompletedJobs int                `json:"completedJobs"`
	UpcomingJobs  int                `json:"upcomingJobs"`
}

// MonthBucket is one calendar month of a yearly rollup.
type MonthBucket struct {
	Month         time.Month `json:"month"`
	WorkedHours   float64    `json:"workedHours"`
	UpcomingHours float64    `json:"upcomingHours"`
	JobCount      int        `json:"jobCount"`
}

// MonthlyStats covers a full calendar year, one bucket per month.
type MonthlyStats struct {
	WorkerID uuid.UUID       `json:"workerId"`
	Year     int             `json:"year"`
	Months   [12]MonthBucket `json:"months"`
}

// Aggregator derives worked and upcoming hour rollups. It never mutates state.
type Aggregator struct {
	store Store
	log   logger.Logger
	now   func() time.Time
}

func NewAggregator(store Store, log logger.Logger) *Aggregator {
	return &Aggregator{store: store, log: log, now: time.Now}
}

const dayKeyFormat = "2006-01-02"

// WeeklyStats sums worked hours from time registrations and upcoming hours
// from approved future shifts within [weekStart, weekEnd).
func (a *Aggregator) WeeklyStats(ctx context.Context, workerID uuid.UUID, weekStart, weekEnd time.Time) (*WeeklyStats, error) {
	out := &WeeklyStats{
		WorkerID:   workerID,
		WeekStart:  weekStart,
		DailyHours: make(map[string]float64),
	}
	for d := weekStart; d.Before(weekEnd); d = d.AddDate(0, 0, 1) {
		out.DailyHours[d.Format(dayKeyFormat)] = 0
	}

	regs, err := a.store.ListTimeRegistrations(ctx, workerID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	for i := range regs {
		r := &regs[i]
		hours := r.Hours()
		out.WorkedHours += hours
		out.DailyHours[r.StartTime.Format(dayKeyFormat)] += hours
	}
	out.CompletedJobs = len(regs)

	shifts, err := a.store.ListUpcomingShifts(ctx, workerID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	now := a.now()
	for _, sh := range shifts {
		if !sh.Start.After(now) {
			continue
		}
		hours := sh.End.Sub(sh.Start).Hours()
		out.UpcomingHours += hours
		out.DailyHours[sh.Start.Format(dayKeyFormat)] += hours
		out.UpcomingJobs++
	}
	return out, nil
}

// MonthlyStats buckets a full year by calendar month. Months entirely in the
// past contribute worked hours, months in the future contribute upcoming
// hours, and the current month is split at "now" so nothing is counted twice.
func (a *Aggregator) MonthlyStats(ctx context.Context, workerID uuid.UUID, year int) (*MonthlyStats, error) {
	out := &MonthlyStats{WorkerID: workerID, Year: year}
	for i := range out.Months {
		out.Months[i].Month = time.Month(i + 1)
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)
	now := a.now()

	if yearStart.Before(now) {
		workedTo := yearEnd
		if now.Before(workedTo) {
			workedTo = now
		}
		regs, err := a.store.ListTimeRegistrations(ctx, workerID, yearStart, workedTo)
		if err != nil {
			return nil, err
		}
		for i := range regs {
			r := &regs[i]
			b := &out.Months[r.StartTime.Month()-1]
			b.WorkedHours += r.Hours()
			b.JobCount++
		}
	}

	if yearEnd.After(now) {
		upcomingFrom := yearStart
		if upcomingFrom.Before(now) {
			upcomingFrom = now
		}
		shifts, err := a.store.ListUpcomingShifts(ctx, workerID, upcomingFrom, yearEnd)
		if err != nil {
			return nil, err
		}
		for _, sh := range shifts {
			if !sh.Start.After(now) {
				continue
			}
			b := &out.Months[sh.Start.Month()-1]
			b.UpcomingHours += sh.End.Sub(sh.Start).Hours()
			b.JobCount++
		}
	}
	return out, nil
}
