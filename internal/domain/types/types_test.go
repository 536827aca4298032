package types_test

import (
	"testing"

	"github.com/okian/ladder/internal/domain/model"
	types "github.com/okian/ladder/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntries(t *testing.T) {
	Convey("Given ordered records", t, func() {
		upper := 7.9
		recs := []model.CountryRecord{
			{Country: "Finland", LadderScore: 7.8, Upper: &upper},
			{Country: "Sweden", LadderScore: 7.3},
		}

		Convey("When converting to entries", func() {
			entries := types.Entries(recs)

			Convey("Then ranks start at one and follow input order", func() {
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].Country, ShouldEqual, "Finland")
				So(*entries[0].Upper, ShouldEqual, 7.9)
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[1].Upper, ShouldBeNil)
			})
		})

		Convey("When converting nothing", func() {
			So(types.Entries(nil), ShouldBeEmpty)
		})
	})
}
