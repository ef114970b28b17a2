package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/pkg/retry"
)

func TestPolicyDo(t *testing.T) {
	ctx := context.Background()
	policy := retry.Policy{Attempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}

	Convey("Given a bounded retry policy", t, func() {
		Convey("When the operation succeeds immediately", func() {
			calls := 0

			err := policy.Do(ctx, func() error {
				calls++
				return nil
			})

			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("When the operation recovers on a later attempt", func() {
			calls := 0

			err := policy.Do(ctx, func() error {
				calls++
				if calls < 3 {
					return errors.New("transient")
				}
				return nil
			})

			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 3)
		})

		Convey("When the operation never recovers", func() {
			calls := 0
			boom := errors.New("still down")

			err := policy.Do(ctx, func() error {
				calls++
				return boom
			})

			So(err, ShouldEqual, boom)
			So(calls, ShouldEqual, 3)
		})

		Convey("When the operation fails permanently", func() {
			calls := 0
			conflict := errors.New("conflict")

			err := policy.Do(ctx, func() error {
				calls++
				return retry.Permanent(conflict)
			})

			Convey("Then there is no second attempt and the cause surfaces", func() {
				So(calls, ShouldEqual, 1)
				So(err, ShouldEqual, conflict)
			})
		})

		Convey("When the context is cancelled between attempts", func() {
			cancelCtx, cancel := context.WithCancel(ctx)
			calls := 0

			err := policy.Do(cancelCtx, func() error {
				calls++
				cancel()
				return errors.New("transient")
			})

			So(err, ShouldWrap, context.Canceled)
			So(calls, ShouldEqual, 1)
		})

		Convey("When attempts are misconfigured", func() {
			calls := 0

			err := retry.Policy{Attempts: 0, InitialBackoff: time.Millisecond}.Do(ctx, func() error {
				calls++
				return errors.New("transient")
			})

			Convey("Then the operation still runs once", func() {
				So(err, ShouldNotBeNil)
				So(calls, ShouldEqual, 1)
			})
		})
	})
}

func TestPermanent(t *testing.T) {
	Convey("Given the permanent wrapper", t, func() {
		Convey("Then nil stays nil", func() {
			So(retry.Permanent(nil), ShouldBeNil)
		})

		Convey("Then the wrapped error unwraps to its cause", func() {
			cause := errors.New("conflict")
			So(errors.Is(retry.Permanent(cause), cause), ShouldBeTrue)
		})
	})
}
