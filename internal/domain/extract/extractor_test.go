package extract_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/internal/domain/extract"
	"coachledger/internal/domain/model"
)

func find(candidates []model.Candidate, field model.Field, value string) (model.Candidate, bool) {
	for _, c := range candidates {
		if c.Field == field && c.Value == value {
			return c, true
		}
	}
	return model.Candidate{}, false
}

func TestExtractor(t *testing.T) {
	e := extract.NewExtractor()

	Convey("Given an event with a pair-pattern topic", t, func() {
		event := model.RecordingEvent{
			Topic: "Jenny Duan <> Huda - Coaching Session",
		}

		candidates := e.Extract(event)

		Convey("Then the left side is a coach candidate and the right a student", func() {
			coach, ok := find(candidates, model.FieldCoach, "Jenny Duan")
			So(ok, ShouldBeTrue)
			So(coach.Source, ShouldEqual, extract.SourceTopic)
			So(coach.Confidence, ShouldEqual, 85)

			student, ok := find(candidates, model.FieldStudent, "Huda")
			So(ok, ShouldBeTrue)
			So(student.Confidence, ShouldEqual, 85)
		})

		Convey("Then the session type keyword is picked up", func() {
			st, ok := find(candidates, model.FieldSessionType, "Coaching")
			So(ok, ShouldBeTrue)
			So(st.Confidence, ShouldEqual, 90)
		})
	})

	Convey("Given an event with an and-pattern topic", t, func() {
		event := model.RecordingEvent{Topic: "Jenny and Huda planning"}

		candidates := e.Extract(event)

		_, coachOK := find(candidates, model.FieldCoach, "Jenny")
		_, studentOK := find(candidates, model.FieldStudent, "Huda")
		st, typeOK := find(candidates, model.FieldSessionType, "Planning")

		So(coachOK, ShouldBeTrue)
		So(studentOK, ShouldBeTrue)
		So(typeOK, ShouldBeTrue)
		So(st.Value, ShouldEqual, "Planning")
	})

	Convey("Given an event with participants", t, func() {
		event := model.RecordingEvent{
			Participants: []model.Participant{
				{Name: "Jenny Duan", IsHost: true},
				{Name: "Huda Aweys"},
				{Email: "omar.khalid@example.com"},
			},
		}

		candidates := e.Extract(event)

		Convey("Then the host is a coach candidate", func() {
			c, ok := find(candidates, model.FieldCoach, "Jenny Duan")
			So(ok, ShouldBeTrue)
			So(c.Source, ShouldEqual, extract.SourceParticipants)
			So(c.Confidence, ShouldEqual, 90)
		})

		Convey("Then attendees are student candidates", func() {
			c, ok := find(candidates, model.FieldStudent, "Huda Aweys")
			So(ok, ShouldBeTrue)
			So(c.Confidence, ShouldEqual, 85)
		})

		Convey("Then a nameless participant falls back to the email local part", func() {
			_, ok := find(candidates, model.FieldStudent, "omar.khalid")
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given an event with a host identity only", t, func() {
		event := model.RecordingEvent{HostIdentity: "jenny.duan@example.com"}

		candidates := e.Extract(event)

		c, ok := find(candidates, model.FieldCoach, "jenny.duan")
		So(ok, ShouldBeTrue)
		So(c.Source, ShouldEqual, extract.SourceHost)
		So(c.Confidence, ShouldEqual, 80)
	})

	Convey("Given a file name with an embedded date", t, func() {
		event := model.RecordingEvent{
			SourceFiles: []model.SourceFile{{Name: "Coaching_Huda_2025-09-16.mp4"}},
		}

		candidates := e.Extract(event)

		Convey("Then a date candidate is proposed", func() {
			d, ok := find(candidates, model.FieldDate, "2025-09-16")
			So(ok, ShouldBeTrue)
			So(d.Source, ShouldEqual, extract.SourceFiles)
			So(d.Confidence, ShouldEqual, 80)
		})

		Convey("Then stopwords never become name candidates", func() {
			_, ok := find(candidates, model.FieldCoach, "Coaching")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a compact date in the topic", t, func() {
		event := model.RecordingEvent{Topic: "Huda session 20250916"}

		candidates := e.Extract(event)

		d, ok := find(candidates, model.FieldDate, "2025-09-16")
		So(ok, ShouldBeTrue)
		So(d.Source, ShouldEqual, extract.SourceTopic)
	})

	Convey("Given an empty event", t, func() {
		candidates := e.Extract(model.RecordingEvent{})
		So(candidates, ShouldBeEmpty)
	})

	Convey("Given lone capitalized tokens", t, func() {
		event := model.RecordingEvent{Topic: "Huda recording"}

		candidates := e.Extract(event)

		Convey("Then the token is offered for both roles at low confidence", func() {
			coach, coachOK := find(candidates, model.FieldCoach, "Huda")
			student, studentOK := find(candidates, model.FieldStudent, "Huda")
			So(coachOK, ShouldBeTrue)
			So(studentOK, ShouldBeTrue)
			So(coach.Confidence, ShouldEqual, 60)
			So(student.Confidence, ShouldEqual, 60)
		})
	})
}

func TestSourceWeights(t *testing.T) {
	Convey("Source weights and priorities are fixed", t, func() {
		So(extract.Weight(extract.SourceFiles), ShouldEqual, 0.4)
		So(extract.Weight(extract.SourceParticipants), ShouldEqual, 0.3)
		So(extract.Weight(extract.SourceTopic), ShouldEqual, 0.2)
		So(extract.Weight(extract.SourceHost), ShouldEqual, 0.1)
		So(extract.Weight("nonsense"), ShouldEqual, 0)

		So(extract.Priority(extract.SourceFiles), ShouldBeLessThan, extract.Priority(extract.SourceParticipants))
		So(extract.Priority(extract.SourceParticipants), ShouldBeLessThan, extract.Priority(extract.SourceTopic))
		So(extract.Priority(extract.SourceTopic), ShouldBeLessThan, extract.Priority(extract.SourceHost))
	})
}
