package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := Init(); err != nil {
		panic(err)
	}
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	Convey("Given the initialized global logger", t, func() {
		log := Get()
		So(log, ShouldNotBeNil)

		Convey("Then logging at every level does not panic", func() {
			So(func() {
				log.Debug(ctx, "debug message", String("k", "v"))
				log.Info(ctx, "info message", Int("n", 1))
				log.Warn(ctx, "warn message", Bool("flag", true))
				log.Error(ctx, "error message", Error(errors.New("boom")))
			}, ShouldNotPanic)
		})

		Convey("Then named loggers derive from the global one", func() {
			named := log.Named("component")
			So(named, ShouldNotBeNil)
			So(func() { named.Info(ctx, "hello") }, ShouldNotPanic)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the level parser", t, func() {
		Convey("Then known levels parse", func() {
			for _, level := range []string{"debug", "info", "WARN", "warning", "Error", ""} {
				So(SetLevelString(level), ShouldBeNil)
			}
		})

		Convey("Then unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("Then the handler honors the configured level", func() {
			SetLevel(slog.LevelError)
			So(levelVar.Level(), ShouldEqual, slog.LevelError)

			SetLevel(slog.LevelInfo)
			So(levelVar.Level(), ShouldEqual, slog.LevelInfo)
		})
	})
}

func TestFieldConstructors(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		So(String("k", "v"), ShouldResemble, Field{Key: "k", Value: "v"})
		So(Int("n", 3).Value, ShouldEqual, 3)
		So(Error(errors.New("boom")).Key, ShouldEqual, "error")
	})
}
