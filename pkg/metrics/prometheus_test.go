package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGlobalManager(t *testing.T) {
	Convey("Given the process metrics manager", t, func() {
		Convey("Then counters accumulate", func() {
			before := testutil.ToFloat64(globalManager.eventsProcessed)
			RecordEventProcessed()
			RecordEventProcessed()
			So(testutil.ToFloat64(globalManager.eventsProcessed), ShouldEqual, before+2)
		})

		Convey("Then labelled counters track per value", func() {
			before := testutil.ToFloat64(globalManager.weekMethod.WithLabelValues("filename"))
			RecordWeekMethod("filename")
			So(testutil.ToFloat64(globalManager.weekMethod.WithLabelValues("filename")), ShouldEqual, before+1)
		})

		Convey("Then gauges track the latest value", func() {
			UpdateQueueSize(7)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)

			UpdateQueueSize(0)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 0)

			UpdateLedgerRows("cloud-meeting", 42)
			So(testutil.ToFloat64(globalManager.ledgerRows.WithLabelValues("cloud-meeting")), ShouldEqual, 42)
		})

		Convey("Then the registry gathers without error", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
		})
	})
}

func TestNewManagerIsolation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

		m.eventsProcessed.Inc()

		Convey("Then the global registry is untouched by it", func() {
			So(testutil.ToFloat64(m.eventsProcessed), ShouldEqual, 1)
		})
	})
}
