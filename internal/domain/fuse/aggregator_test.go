package fuse_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/internal/config"
	"coachledger/internal/domain/extract"
	"coachledger/internal/domain/fuse"
	"coachledger/internal/domain/model"
	"coachledger/internal/domain/names"
	"coachledger/internal/domain/week"
)

func testRoster() *config.Roster {
	return &config.Roster{
		Coaches: []config.Coach{
			{
				Name: "Jenny Duan",
				Students: []config.Student{
					{Name: "Huda Aweys"},
				},
			},
		},
	}
}

func TestSelect(t *testing.T) {
	a := fuse.NewAggregator(names.NewResolver(testRoster()))

	Convey("Given one clean candidate per name field", t, func() {
		event := model.RecordingEvent{
			StartTime: time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC),
		}
		candidates := []model.Candidate{
			{Field: model.FieldCoach, Value: "Jenny Duan", Source: extract.SourceParticipants, Confidence: 90},
			{Field: model.FieldStudent, Value: "Huda Aweys", Source: extract.SourceParticipants, Confidence: 85},
		}

		sel := a.Select(event, candidates)

		Convey("Then both names standardize with resolver confidence", func() {
			So(sel.Coach, ShouldEqual, "Jenny Duan")
			So(sel.CoachConfidence, ShouldEqual, 95)
			So(sel.Student, ShouldEqual, "Huda Aweys")
			So(sel.StudentConfidence, ShouldEqual, 95)
			So(sel.CoachCandidates, ShouldEqual, 1)
			So(sel.StudentCandidates, ShouldEqual, 1)
		})

		Convey("Then the event's start time is the date, at full confidence", func() {
			So(sel.Date, ShouldEqual, event.StartTime)
			So(sel.DateConfidence, ShouldEqual, 100)
		})
	})

	Convey("Given no candidates at all", t, func() {
		sel := a.Select(model.RecordingEvent{}, nil)

		Convey("Then every field is unknown, not empty", func() {
			So(sel.Coach, ShouldEqual, model.Unknown)
			So(sel.Student, ShouldEqual, model.Unknown)
			So(sel.SessionType, ShouldEqual, model.Unknown)
			So(sel.Date.IsZero(), ShouldBeTrue)
		})
	})

	Convey("Given competing coach candidates where one is really a student", t, func() {
		candidates := []model.Candidate{
			{Field: model.FieldCoach, Value: "Huda Aweys", Source: extract.SourceFiles, Confidence: 85},
			{Field: model.FieldCoach, Value: "Jenny Duan", Source: extract.SourceTopic, Confidence: 60},
		}

		sel := a.Select(model.RecordingEvent{}, candidates)

		Convey("Then the role penalty overrides the stronger source", func() {
			// files: 0.4 x 85 x 0.95 x 0.2 (penalty) = 6.46
			// topic: 0.2 x 60 x 0.95 = 11.4
			So(sel.Coach, ShouldEqual, "Jenny Duan")
		})
	})

	Convey("Given the same value from two sources", t, func() {
		candidates := []model.Candidate{
			{Field: model.FieldStudent, Value: "Huda", Source: extract.SourceTopic, Confidence: 60},
			{Field: model.FieldStudent, Value: "Huda Aweys", Source: extract.SourceFiles, Confidence: 60},
		}

		sel := a.Select(model.RecordingEvent{}, candidates)

		Convey("Then the higher-weight source wins and keeps its raw form", func() {
			So(sel.Student, ShouldEqual, "Huda Aweys")
			So(sel.RawStudent, ShouldEqual, "Huda Aweys")
		})
	})

	Convey("Given a dateless event with a text date candidate", t, func() {
		candidates := []model.Candidate{
			{Field: model.FieldDate, Value: "2025-09-16", Source: extract.SourceFiles, Confidence: 80},
		}

		sel := a.Select(model.RecordingEvent{}, candidates)

		So(sel.Date, ShouldEqual, time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC))
		So(sel.DateConfidence, ShouldEqual, 80)
	})
}

func TestCompose(t *testing.T) {
	a := fuse.NewAggregator(names.NewResolver(testRoster()))

	Convey("Given a fully resolved selection", t, func() {
		event := model.RecordingEvent{
			StartTime: time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC),
		}
		sel := a.Select(event, []model.Candidate{
			{Field: model.FieldCoach, Value: "Jenny Duan", Source: extract.SourceParticipants, Confidence: 90},
			{Field: model.FieldStudent, Value: "Huda Aweys", Source: extract.SourceParticipants, Confidence: 85},
			{Field: model.FieldSessionType, Value: "Coaching", Source: extract.SourceTopic, Confidence: 90},
		})

		id := a.Compose(sel, week.Result{Week: 3, Confidence: 95, Method: week.MethodTimeline})

		Convey("Then the identity carries all resolved fields", func() {
			So(id.Coach, ShouldEqual, "Jenny Duan")
			So(id.Student, ShouldEqual, "Huda Aweys")
			So(id.SessionType, ShouldEqual, "Coaching")
			So(id.Week, ShouldEqual, 3)
			So(id.WeekMethod, ShouldEqual, string(week.MethodTimeline))
		})

		Convey("Then the overall confidence caps at 100 after the boost", func() {
			// Weighted mean 94.25, then the unambiguous boost pushes
			// past the cap.
			So(id.Overall, ShouldEqual, 100)
		})

		Convey("Then per-field confidences are recorded", func() {
			So(id.PerField[model.FieldCoach], ShouldEqual, 95)
			So(id.PerField[model.FieldWeek], ShouldEqual, 95)
			So(id.PerField[model.FieldDate], ShouldEqual, 100)
		})
	})

	Convey("Given a selection with nothing resolved", t, func() {
		sel := a.Select(model.RecordingEvent{}, nil)
		id := a.Compose(sel, week.Result{Week: 1, Confidence: 50, Method: week.MethodSequential})

		Convey("Then the overall confidence is heavily degraded", func() {
			// Only the week contributes; four unknown-field penalties.
			So(id.Overall, ShouldBeLessThanOrEqualTo, 50)
			So(id.Overall, ShouldBeGreaterThan, 0)
		})

		Convey("Then the identity still carries a week and unknowns", func() {
			So(id.Coach, ShouldEqual, model.Unknown)
			So(id.Week, ShouldEqual, 1)
		})
	})

	Convey("Given ambiguous name fields", t, func() {
		sel := a.Select(model.RecordingEvent{
			StartTime: time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC),
		}, []model.Candidate{
			{Field: model.FieldCoach, Value: "Jenny Duan", Source: extract.SourceParticipants, Confidence: 90},
			{Field: model.FieldCoach, Value: "Jenny", Source: extract.SourceTopic, Confidence: 60},
			{Field: model.FieldStudent, Value: "Huda Aweys", Source: extract.SourceParticipants, Confidence: 85},
			{Field: model.FieldSessionType, Value: "Coaching", Source: extract.SourceTopic, Confidence: 90},
		})

		boosted := a.Compose(fuse.Selection{
			Coach: sel.Coach, CoachConfidence: sel.CoachConfidence,
			Student: sel.Student, StudentConfidence: sel.StudentConfidence,
			SessionType: sel.SessionType, SessionTypeConfidence: sel.SessionTypeConfidence,
			Date: sel.Date, DateConfidence: sel.DateConfidence,
			CoachCandidates: 1, StudentCandidates: 1,
		}, week.Result{Week: 3, Confidence: 95})
		plain := a.Compose(sel, week.Result{Week: 3, Confidence: 95})

		Convey("Then two coach candidates suppress the boost", func() {
			So(sel.CoachCandidates, ShouldEqual, 2)
			So(plain.Overall, ShouldBeLessThan, boosted.Overall)
		})
	})
}
