package selection

import (
	"errors"
	"testing"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/smartystreets/goconvey/convey"
)

func names(recs []model.CountryRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Country
	}
	return out
}

func TestRankedSubset(t *testing.T) {
	convey.Convey("Given three countries", t, func() {
		recs := []model.CountryRecord{
			{Country: "Chad", LadderScore: 4.1},
			{Country: "Sweden", LadderScore: 7.3},
			{Country: "Finland", LadderScore: 7.8},
		}
		c := New()

		convey.Convey("When nothing is selected", func() {
			got := c.RankedSubset(recs, 0)

			convey.Convey("Then all records are returned descending", func() {
				convey.So(names(got), convey.ShouldResemble, []string{"Finland", "Sweden", "Chad"})
			})
		})

		convey.Convey("When a country scoring 7.0 is selected", func() {
			c.Select(&model.CountryRecord{Country: "Somewhere", LadderScore: 7.0})
			got := c.RankedSubset(recs, 0)

			convey.Convey("Then only countries at or above it remain", func() {
				convey.So(names(got), convey.ShouldResemble, []string{"Finland", "Sweden"})
				convey.So(c.Threshold(), convey.ShouldEqual, 7.0)
			})

			convey.Convey("Then clearing removes the filter", func() {
				c.Select(nil)
				convey.So(c.Threshold(), convey.ShouldEqual, 0)
				convey.So(len(c.RankedSubset(recs, 0)), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When a limit is given", func() {
			convey.So(names(c.RankedSubset(recs, 2)), convey.ShouldResemble, []string{"Finland", "Sweden"})
			convey.So(len(c.RankedSubset(recs, 10)), convey.ShouldEqual, 3)
		})

		convey.Convey("Then ties keep input order and the input is untouched", func() {
			tied := []model.CountryRecord{
				{Country: "B", LadderScore: 5},
				{Country: "A", LadderScore: 5},
				{Country: "C", LadderScore: 6},
			}
			convey.So(names(Ranked(tied, 0, 0)), convey.ShouldResemble, []string{"C", "B", "A"})
			convey.So(names(tied), convey.ShouldResemble, []string{"B", "A", "C"})
		})
	})
}

func TestSelectIn(t *testing.T) {
	convey.Convey("Given a snapshot", t, func() {
		snap, err := snapshot.NewRecords([]model.CountryRecord{
			{Country: "Finland", LadderScore: 7.8},
			{Country: "Chad", LadderScore: 4.1},
		})
		convey.So(err, convey.ShouldBeNil)

		var seen []State
		c := New(WithListener(func(s State) { seen = append(seen, s) }))

		convey.Convey("When selecting a known country", func() {
			convey.So(c.SelectIn(snap, "Finland"), convey.ShouldBeNil)

			convey.Convey("Then the threshold follows its score", func() {
				st := c.State()
				convey.So(st.Selected.Country, convey.ShouldEqual, "Finland")
				convey.So(st.Threshold, convey.ShouldEqual, 7.8)
				convey.So(len(seen), convey.ShouldEqual, 1)
			})

			convey.Convey("Then selecting an unknown country clears it", func() {
				err := c.SelectIn(snap, "Atlantis")
				convey.So(errors.Is(err, model.ErrInvalidSelectionTarget), convey.ShouldBeTrue)
				convey.So(c.State().HasSelection(), convey.ShouldBeFalse)
				convey.So(c.Threshold(), convey.ShouldEqual, 0)
				convey.So(seen[len(seen)-1].Revision, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the snapshot is reloaded", func() {
			convey.So(c.SelectIn(snap, "Chad"), convey.ShouldBeNil)
			next, _ := snapshot.NewRecords([]model.CountryRecord{{Country: "Chad", LadderScore: 4.5}})
			gone, _ := snapshot.NewRecords([]model.CountryRecord{{Country: "Finland", LadderScore: 7.8}})

			convey.Convey("Then a surviving selection takes the new score", func() {
				convey.So(c.Revalidate(next), convey.ShouldBeTrue)
				convey.So(c.Threshold(), convey.ShouldEqual, 4.5)
			})

			convey.Convey("Then a vanished selection is cleared", func() {
				convey.So(c.Revalidate(gone), convey.ShouldBeFalse)
				convey.So(c.State().HasSelection(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When looking up the threshold in another slice", func() {
			convey.So(c.SelectIn(snap, "Chad"), convey.ShouldBeNil)
			year, _ := snapshot.NewRecords([]model.CountryRecord{{Country: "Chad", LadderScore: 3.9}})

			v, ok := c.ThresholdIn(year)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 3.9)
		})

		convey.Convey("Then a copy of state cannot mutate the coordinator", func() {
			convey.So(c.SelectIn(snap, "Chad"), convey.ShouldBeNil)
			st := c.State()
			st.Selected.LadderScore = 99
			convey.So(c.State().Selected.LadderScore, convey.ShouldEqual, 4.1)
		})
	})
}
