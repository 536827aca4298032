package snapshot

import (
	"errors"
	"testing"

	"github.com/okian/ladder/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(name string, score float64) model.CountryRecord {
	return model.CountryRecord{Country: name, LadderScore: score, Factors: map[model.Factor]float64{model.GDP: score / 4}}
}

func row(name string, year int, score float64) model.TimeSeriesRecord {
	return model.TimeSeriesRecord{CountryRecord: rec(name, score), Year: year}
}

func TestRecords(t *testing.T) {
	Convey("Given a record set", t, func() {
		Convey("When keys are unique", func() {
			r, err := NewRecords([]model.CountryRecord{rec("Finland", 7.7), rec("Chad", 4.1)})
			So(err, ShouldBeNil)

			Convey("Then lookups hit", func() {
				got, ok := r.Lookup("Chad")
				So(ok, ShouldBeTrue)
				So(got.LadderScore, ShouldEqual, 4.1)
				_, ok = r.Lookup("chad")
				So(ok, ShouldBeFalse)
			})

			Convey("Then the snapshot is isolated from callers", func() {
				all := r.All()
				all[0].Factors[model.GDP] = 100
				again, _ := r.Lookup("Finland")
				So(again.Factors[model.GDP], ShouldNotEqual, 100)

				again.Factors[model.GDP] = 200
				third, _ := r.Lookup("Finland")
				So(third.Factors[model.GDP], ShouldEqual, 7.7/4)
			})
		})

		Convey("When records carry whisker bounds", func() {
			upper, lower := 7.8, 7.6
			in := rec("Finland", 7.7)
			in.Upper, in.Lower = &upper, &lower
			r, err := NewRecords([]model.CountryRecord{in})
			So(err, ShouldBeNil)

			Convey("Then neither the input nor the results alias them", func() {
				upper = 9
				got, _ := r.Lookup("Finland")
				So(*got.Upper, ShouldEqual, 7.8)

				*got.Upper, *got.Lower = 1, 1
				all := r.All()
				So(*all[0].Upper, ShouldEqual, 7.8)
				So(*all[0].Lower, ShouldEqual, 7.6)
			})
		})

		Convey("When a key repeats", func() {
			_, err := NewRecords([]model.CountryRecord{rec("Finland", 7.7), rec("Finland", 7.1)})

			Convey("Then construction fails with a configuration error", func() {
				So(errors.Is(err, ErrDuplicateKey), ShouldBeTrue)
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
			})
		})

		Convey("When a name is blank", func() {
			_, err := NewRecords([]model.CountryRecord{rec(" ", 1)})
			So(errors.Is(err, ErrEmptyKey), ShouldBeTrue)
		})

		Convey("Then every snapshot gets a new version", func() {
			a, _ := NewRecords(nil)
			b, _ := NewRecords(nil)
			So(b.Version(), ShouldBeGreaterThan, a.Version())
		})
	})
}

func TestSeries(t *testing.T) {
	Convey("Given a series", t, func() {
		s, err := NewSeries([]model.TimeSeriesRecord{
			row("Finland", 2007, 7.6),
			row("Finland", 2006, 7.5),
			row("Chad", 2006, 4.0),
		})
		So(err, ShouldBeNil)

		Convey("Then years are sorted and distinct", func() {
			So(s.Years(), ShouldResemble, []int{2006, 2007})
		})

		Convey("Then a year slice is a stable record set", func() {
			a, err := s.Slice(2006)
			So(err, ShouldBeNil)
			So(a.Len(), ShouldEqual, 2)
			b, _ := s.Slice(2006)
			So(b.Version(), ShouldEqual, a.Version())
		})

		Convey("Then rows of a year are copies", func() {
			rows := s.Rows(2006)
			So(len(rows), ShouldEqual, 2)
			rows[0].Factors[model.GDP] = 100
			So(s.Rows(2006)[0].Factors[model.GDP], ShouldEqual, 7.5/4)
		})

		Convey("Then unknown years are reported", func() {
			_, err := s.Slice(1999)
			So(errors.Is(err, ErrUnknownYear), ShouldBeTrue)
		})

		Convey("Then a repeated (country, year) pair is rejected", func() {
			_, err := NewSeries([]model.TimeSeriesRecord{row("Chad", 2006, 4), row("Chad", 2006, 4.2)})
			So(errors.Is(err, ErrDuplicateKey), ShouldBeTrue)
		})
	})
}

func TestShapes(t *testing.T) {
	Convey("Given shape features", t, func() {
		Convey("Then duplicate ids are rejected", func() {
			_, err := NewShapes([]model.ShapeFeature{{ID: "FIN", Name: "Finland"}, {ID: "FIN", Name: "Finland"}})
			So(errors.Is(err, ErrDuplicateKey), ShouldBeTrue)
		})

		Convey("Then ids resolve to features", func() {
			s, err := NewShapes([]model.ShapeFeature{{ID: "FIN", Name: "Finland"}})
			So(err, ShouldBeNil)
			f, ok := s.Lookup("FIN")
			So(ok, ShouldBeTrue)
			So(f.Name, ShouldEqual, "Finland")
		})
	})

	Convey("Status names render", t, func() {
		So(StatusReady.String(), ShouldEqual, "ready")
		b, _ := StatusFailed.MarshalText()
		So(string(b), ShouldEqual, "failed")
	})
}
