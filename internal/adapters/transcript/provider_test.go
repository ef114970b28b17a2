package transcript_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/internal/adapters/transcript"
	"coachledger/internal/domain/model"
)

func TestDirProvider(t *testing.T) {
	ctx := context.Background()

	Convey("Given a directory of transcript files", t, func() {
		dir := t.TempDir()
		write := func(name, content string) {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
				t.Fatalf("write transcript fixture: %v", err)
			}
		}
		write("rec-123.txt", "  Welcome back, this is week 5 of the program.\n")
		write("rec-empty.txt", "   \n\t")

		provider := transcript.NewDirProvider(dir)

		Convey("When the event has a transcript", func() {
			text, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "rec-123"})

			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, "Welcome back, this is week 5 of the program.")
		})

		Convey("When no file exists for the event", func() {
			text, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "rec-404"})

			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(text, ShouldBeEmpty)
		})

		Convey("When the file is only whitespace", func() {
			_, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "rec-empty"})

			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the external id is blank", func() {
			_, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "   "})

			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the external id tries to escape the directory", func() {
			write("passwd.txt", "not a transcript")

			text, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "../" + filepath.Base(dir) + "/passwd"})

			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, "not a transcript")
		})
	})
}

func TestMapProvider(t *testing.T) {
	ctx := context.Background()

	Convey("Given a map provider", t, func() {
		provider := transcript.MapProvider{
			"rec-1": "week 7 session",
			"rec-2": "",
		}

		Convey("Then present keys resolve", func() {
			text, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "rec-1"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, "week 7 session")
		})

		Convey("Then empty values behave like misses", func() {
			_, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "rec-2"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Then absent keys miss", func() {
			_, ok, err := provider.Text(ctx, model.RecordingEvent{ExternalID: "rec-3"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNullProvider(t *testing.T) {
	Convey("Given the null provider", t, func() {
		_, ok, err := transcript.NullProvider{}.Text(context.Background(), model.RecordingEvent{ExternalID: "rec-1"})

		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
	})
}
