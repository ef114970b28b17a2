package names_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/internal/config"
	"coachledger/internal/domain/names"
)

func testRoster() *config.Roster {
	return &config.Roster{
		Version: "test",
		Coaches: []config.Coach{
			{
				Name:       "Jenny Duan",
				Variations: []string{"jduan"},
				Students: []config.Student{
					{Name: "Huda Aweys", Variations: []string{"hudda"}},
					{Name: "Omar Khalid"},
				},
			},
			{
				Name: "Marcus Lee",
				Students: []config.Student{
					{Name: "Priya Nair"},
				},
			},
		},
	}
}

func TestResolver(t *testing.T) {
	Convey("Given a resolver built from a roster", t, func() {
		r := names.NewResolver(testRoster())

		Convey("When resolving the exact canonical name", func() {
			m := r.Resolve("Jenny Duan")

			Convey("Then it matches at the exact confidence", func() {
				So(m.Canonical, ShouldEqual, "Jenny Duan")
				So(m.Confidence, ShouldEqual, names.ConfidenceExact)
			})
		})

		Convey("When resolving with different casing", func() {
			m := r.Resolve("jenny duan")

			So(m.Canonical, ShouldEqual, "Jenny Duan")
			So(m.Confidence, ShouldEqual, names.ConfidenceExact)
		})

		Convey("When resolving a whitespace-stripped form", func() {
			m := r.Resolve("JennyDuan")

			Convey("Then the no-space variation matches exactly", func() {
				So(m.Canonical, ShouldEqual, "Jenny Duan")
				So(m.Confidence, ShouldEqual, names.ConfidenceExact)
			})
		})

		Convey("When resolving a registered extra variation", func() {
			m := r.Resolve("jduan")

			So(m.Canonical, ShouldEqual, "Jenny Duan")
			So(m.Confidence, ShouldEqual, names.ConfidenceExact)
		})

		Convey("When resolving a first name alone", func() {
			m := r.Resolve("Huda")

			So(m.Canonical, ShouldEqual, "Huda Aweys")
			So(m.Confidence, ShouldEqual, names.ConfidenceExact)
		})

		Convey("When the input contains a known name as a substring", func() {
			m := r.Resolve("recording jenny duan final")

			Convey("Then the substring tier matches", func() {
				So(m.Canonical, ShouldEqual, "Jenny Duan")
				So(m.Confidence, ShouldEqual, names.ConfidenceSubstring)
			})
		})

		Convey("When the input is a close misspelling", func() {
			m := r.Resolve("Jeny Duan")

			Convey("Then the fuzzy tier matches", func() {
				So(m.Canonical, ShouldEqual, "Jenny Duan")
				So(m.Confidence, ShouldBeIn, []float64{names.ConfidenceSubstring, names.ConfidenceFuzzy})
			})
		})

		Convey("When nothing on the roster matches", func() {
			m := r.Resolve("Zzyzx Qwtp")

			Convey("Then the input comes back unchanged at reduced confidence", func() {
				So(m.Canonical, ShouldEqual, "Zzyzx Qwtp")
				So(m.Confidence, ShouldEqual, names.ConfidenceUnknown)
			})
		})

		Convey("When resolving an empty string", func() {
			m := r.Resolve("   ")

			So(m.Canonical, ShouldEqual, "")
			So(m.Confidence, ShouldEqual, 0)
		})

		Convey("When checking roles", func() {
			So(r.IsCoach("Jenny Duan"), ShouldBeTrue)
			So(r.IsCoach("Huda Aweys"), ShouldBeFalse)
			So(r.IsStudent("Huda Aweys"), ShouldBeTrue)
			So(r.IsStudent("Marcus Lee"), ShouldBeFalse)
		})

		Convey("When listing coaches and students", func() {
			So(r.Coaches(), ShouldResemble, []string{"Jenny Duan", "Marcus Lee"})
			So(r.StudentsOf("Jenny Duan"), ShouldResemble, []string{"Huda Aweys", "Omar Khalid"})
			So(r.StudentsOf("Nobody"), ShouldBeNil)
		})

		Convey("When the same input is resolved repeatedly", func() {
			first := r.Resolve("huda")
			for i := 0; i < 10; i++ {
				So(r.Resolve("huda"), ShouldResemble, first)
			}
		})
	})
}
