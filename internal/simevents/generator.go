package simevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"coachledger/internal/config"
	"coachledger/internal/domain/model"
	"coachledger/pkg/logger"
)

// Data source tags used by generated events.
const (
	sourceMeeting = "cloud-meeting"
	sourceDrive   = "cloud-drive"
)

// Generation shape cases. Each event picks one topic/file shape so the
// run exercises every extraction rule.
const (
	casePairTopic = iota
	caseAndTopic
	caseFileMarker
	caseHostOnly
	caseSparse
	shapeCount
)

type pair struct {
	coach   string
	student string
	program *config.Program
}

// randomInt returns a uniform int in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateEvents fabricates recording events from the roster's
// coach/student pairs and program timelines.
func generateEvents(ctx context.Context, cfg *Config, roster *config.Roster, stats *Stats) ([]model.RecordingEvent, error) {
	pairs := rosterPairs(roster)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("roster %s has no coach/student pairs", cfg.RosterPath)
	}
	logger.Get().Info(ctx, "generating recording events",
		logger.Int("numEvents", cfg.NumEvents),
		logger.Int("pairs", len(pairs)),
	)

	events := make([]model.RecordingEvent, 0, cfg.NumEvents)
	for i := 0; i < cfg.NumEvents; i++ {
		p := pairs[randomInt(len(pairs))]
		messy := float64(randomInt(1000))/1000 < cfg.MessyRatio
		events = append(events, generateSingleEvent(p, messy))
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))
	return events, nil
}

func rosterPairs(roster *config.Roster) []pair {
	var pairs []pair
	for _, coach := range roster.Coaches {
		for _, student := range coach.Students {
			pairs = append(pairs, pair{coach: coach.Name, student: student.Name, program: student.Program})
		}
	}
	return pairs
}

// generateSingleEvent builds one event for the pair. Messy events drop
// most metadata so resolution has to degrade instead of failing.
func generateSingleEvent(p pair, messy bool) model.RecordingEvent {
	week := 1 + randomInt(12)
	start, hasProgram := p.program.Start()
	if p.program.TotalWeeks > 0 {
		week = 1 + randomInt(p.program.TotalWeeks)
	}

	event := model.RecordingEvent{
		ExternalID:      uuid.New().String(),
		DurationSeconds: 1800 + randomInt(3600),
		DataSource:      sourceMeeting,
	}
	if randomInt(2) == 0 {
		event.DataSource = sourceDrive
	}
	if hasProgram {
		event.StartTime = start.AddDate(0, 0, (week-1)*7+randomInt(5)).Add(time.Duration(9+randomInt(9)) * time.Hour)
	}

	if messy {
		// A topic nobody on the roster matches, no participants, no
		// files. Only the data source survives.
		event.Topic = "misc recording " + uuid.NewString()[:8]
		return event
	}

	switch randomInt(shapeCount) {
	case casePairTopic:
		event.Topic = fmt.Sprintf("%s <> %s - Coaching Session", p.coach, p.student)
	case caseAndTopic:
		event.Topic = fmt.Sprintf("%s and %s planning", p.coach, p.student)
		event.Participants = participantsFor(p)
	case caseFileMarker:
		event.Topic = "Coaching Session"
		event.SourceFiles = []model.SourceFile{
			{Name: fmt.Sprintf("Coaching_Wk%02d_%s.mp4", week, compact(p.student)), SizeBytes: int64(100_000_000 + randomInt(900_000_000))},
			{Name: "chat_log.txt", SizeBytes: int64(1_000 + randomInt(50_000))},
		}
		event.Participants = participantsFor(p)
	case caseHostOnly:
		event.HostIdentity = emailFor(p.coach)
		event.Participants = participantsFor(p)
	case caseSparse:
		event.Topic = fmt.Sprintf("%s session", p.student)
		event.HostIdentity = emailFor(p.coach)
	}
	return event
}

func participantsFor(p pair) []model.Participant {
	return []model.Participant{
		{Name: p.coach, Email: emailFor(p.coach), IsHost: true},
		{Name: p.student, Email: emailFor(p.student)},
	}
}

func emailFor(name string) string {
	return compact(name) + "@example.com"
}

func compact(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "."))
}
