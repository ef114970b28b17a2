package week_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/internal/adapters/transcript"
	"coachledger/internal/config"
	"coachledger/internal/domain/model"
	"coachledger/internal/domain/week"
	"coachledger/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testRoster() *config.Roster {
	return &config.Roster{
		Coaches: []config.Coach{
			{
				Name: "Jenny Duan",
				Students: []config.Student{
					{
						Name:    "Huda Aweys",
						Program: &config.Program{StartDate: "2025-09-01", TotalWeeks: 12},
					},
					{Name: "Omar Khalid"},
				},
			},
		},
	}
}

func eventAt(t time.Time) model.RecordingEvent {
	return model.RecordingEvent{ExternalID: "rec-1", StartTime: t}
}

func TestInferencer(t *testing.T) {
	ctx := context.Background()

	Convey("Given an inferencer over a roster with one program", t, func() {
		chron := week.NewMemChronology()
		inf := week.NewInferencer(testRoster(), chron)

		Convey("When a filename carries an explicit week marker", func() {
			event := eventAt(time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC))
			event.SourceFiles = []model.SourceFile{{Name: "Coaching_Wk05_video.mp4"}}

			res := inf.Infer(ctx, event, "Jenny Duan", "Huda Aweys")

			Convey("Then the marker wins over the program timeline", func() {
				So(res.Method, ShouldEqual, week.MethodFilename)
				So(res.Week, ShouldEqual, 5)
				So(res.Confidence, ShouldEqual, 100)
			})
		})

		Convey("When only the program timeline applies", func() {
			// 15 days after the program start lands in week 3.
			event := eventAt(time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC))

			res := inf.Infer(ctx, event, "Jenny Duan", "Huda Aweys")

			So(res.Method, ShouldEqual, week.MethodTimeline)
			So(res.Week, ShouldEqual, 3)
			So(res.Confidence, ShouldEqual, 95)
		})

		Convey("When the pair has no program but prior chronology", func() {
			err := inf.Record(ctx, "Jenny Duan", "Omar Khalid",
				time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC), 4)
			So(err, ShouldBeNil)

			Convey("And the next session is two weeks later", func() {
				event := eventAt(time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC))
				res := inf.Infer(ctx, event, "Jenny Duan", "Omar Khalid")

				Convey("Then the week advances by the elapsed weeks", func() {
					So(res.Method, ShouldEqual, week.MethodChronology)
					So(res.Week, ShouldEqual, 6)
					So(res.Confidence, ShouldEqual, 85)
				})
			})

			Convey("And the next session is three days later", func() {
				event := eventAt(time.Date(2025, 10, 9, 10, 0, 0, 0, time.UTC))
				res := inf.Infer(ctx, event, "Jenny Duan", "Omar Khalid")

				Convey("Then the week stays put", func() {
					So(res.Method, ShouldEqual, week.MethodChronology)
					So(res.Week, ShouldEqual, 4)
				})
			})
		})

		Convey("When only the calendar applies", func() {
			// Unknown pair, no chronology: weeks since September 1.
			event := eventAt(time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC))
			res := inf.Infer(ctx, event, "unknown", "unknown")

			So(res.Method, ShouldEqual, week.MethodCalendar)
			So(res.Week, ShouldEqual, 3)
			So(res.Confidence, ShouldEqual, 70)
		})

		Convey("When the event has no date but a transcript mentions the week", func() {
			inf := week.NewInferencer(testRoster(), chron,
				week.WithTranscripts(transcript.MapProvider{
					"rec-1": "welcome back, this is week 7 of the program",
				}),
			)
			event := model.RecordingEvent{ExternalID: "rec-1"}

			res := inf.Infer(ctx, event, "unknown", "unknown")

			So(res.Method, ShouldEqual, week.MethodTranscript)
			So(res.Week, ShouldEqual, 7)
			So(res.Confidence, ShouldEqual, 90)
		})

		Convey("When nothing applies", func() {
			res := inf.Infer(ctx, model.RecordingEvent{}, "unknown", "unknown")

			Convey("Then the sequential fallback reports week one", func() {
				So(res.Method, ShouldEqual, week.MethodSequential)
				So(res.Week, ShouldEqual, 1)
				So(res.Confidence, ShouldEqual, 50)
			})
		})

		Convey("When the event predates the program start", func() {
			event := eventAt(time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC))
			res := inf.Infer(ctx, event, "Jenny Duan", "Huda Aweys")

			Convey("Then the timeline is skipped and the ladder continues", func() {
				So(res.Method, ShouldNotEqual, week.MethodTimeline)
			})
		})
	})
}

func TestChronologyMonotonicity(t *testing.T) {
	ctx := context.Background()

	Convey("Given sessions recorded out of order", t, func() {
		chron := week.NewMemChronology()
		inf := week.NewInferencer(&config.Roster{
			Coaches: []config.Coach{
				{Name: "Jenny Duan", Students: []config.Student{{Name: "Omar Khalid"}}},
			},
		}, chron)

		So(inf.Record(ctx, "Jenny Duan", "Omar Khalid",
			time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC), 2), ShouldBeNil)
		So(inf.Record(ctx, "Jenny Duan", "Omar Khalid",
			time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC), 1), ShouldBeNil)

		Convey("When inferring for a date between the two entries", func() {
			event := model.RecordingEvent{
				StartTime: time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC),
			}
			res := inf.Infer(ctx, event, "Jenny Duan", "Omar Khalid")

			Convey("Then only entries before the event are consulted", func() {
				So(res.Method, ShouldEqual, week.MethodChronology)
				So(res.Week, ShouldEqual, 1)
			})
		})
	})
}

func TestMemChronology(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory chronology", t, func() {
		chron := week.NewMemChronology()

		Convey("When the pair has no history", func() {
			_, ok, err := chron.Latest(ctx, "jenny duan", "omar khalid", time.Now())
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When entries exist for the pair", func() {
			for i, day := range []int{6, 20, 13} {
				So(chron.Append(ctx, model.ChronologyEntry{
					Coach:   "jenny duan",
					Student: "omar khalid",
					Date:    time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC),
					Week:    i + 1,
				}), ShouldBeNil)
			}

			Convey("Then Latest returns the most recent entry before the cutoff", func() {
				entry, ok, err := chron.Latest(ctx, "jenny duan", "omar khalid",
					time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC))
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(entry.Date.Day(), ShouldEqual, 13)
			})

			Convey("Then other pairs stay empty", func() {
				_, ok, err := chron.Latest(ctx, "marcus lee", "omar khalid", time.Now())
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})
	})
}
