package loader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

const snapshotCSV = `Country name,Ladder score,upperwhisker,lowerwhisker,Explained by: Log GDP per capita,Explained by: Social support,Explained by: Healthy life expectancy,Explained by: Freedom to make life choices,Explained by: Generosity,Explained by: Perceptions of corruption,Dystopia + residual
Finland,7.741,7.815,7.667,1.844,1.572,0.695,0.859,0.142,0.546,2.082
Chad,4.397,4.510,4.283,0.478,0.574,0.157,0.224,0.181,0.092,2.690
Unknown Land,,,,,,,,,,
`

const seriesCSV = `Country name,year,Life Ladder,Log GDP per capita,Social support,Healthy life expectancy at birth,Freedom to make life choices,Generosity,Perceptions of corruption,Positive affect,Negative affect
Finland,2006,7.672,10.71,0.93,70.3,0.95,,0.6,0.75,0.16
Finland,2007,7.71,10.76,0.95,70.4,0.94,0.01,0.2,0.78,0.17
`

const shapesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"FIN","properties":{"name":"Finland"},"geometry":{"type":"Point","coordinates":[25,64]}},
{"type":"Feature","properties":{"ADMIN":"Chad","ISO_A3":"TCD"},"geometry":{"type":"Point","coordinates":[18,15]}},
{"type":"Feature","properties":{"name":"Atlantis"},"geometry":null},
{"type":"Feature","id":"-99","properties":{"name":"N. Cyprus"},"geometry":null},
{"type":"Feature","id":"-99","properties":{"name":"Somaliland"},"geometry":null}
]}`

func TestParseRecords(t *testing.T) {
	Convey("Given a yearly report CSV", t, func() {
		recs, err := ParseRecords([]byte(snapshotCSV))
		So(err, ShouldBeNil)

		Convey("Then rows with a ladder score are decoded", func() {
			So(len(recs), ShouldEqual, 2)
			So(recs[0].Country, ShouldEqual, "Finland")
			So(recs[0].LadderScore, ShouldEqual, 7.741)
			So(*recs[0].Upper, ShouldEqual, 7.815)
			So(recs[0].Value(model.GDP), ShouldEqual, 1.844)
			So(recs[1].Value(model.DystopiaResidual), ShouldEqual, 2.690)
		})
	})

	Convey("Given a CSV without a ladder column", t, func() {
		_, err := ParseRecords([]byte("Country name,GDP\nFinland,1\n"))
		So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
		So(errors.Is(err, model.ErrLoadFailure), ShouldBeTrue)
	})

	Convey("Given a CSV with a broken number", t, func() {
		_, err := ParseRecords([]byte("Country name,Ladder score\nFinland,seven\n"))
		So(errors.Is(err, ErrMalformed), ShouldBeTrue)
	})
}

func TestParseSeries(t *testing.T) {
	Convey("Given a panel CSV", t, func() {
		rows, err := ParseSeries([]byte(seriesCSV))
		So(err, ShouldBeNil)

		Convey("Then years and affect scores are decoded", func() {
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Year, ShouldEqual, 2006)
			So(rows[0].LadderScore, ShouldEqual, 7.672)
			So(rows[0].PositiveAffect, ShouldEqual, 0.75)
			So(rows[0].CountryRecord.Has(model.Generosity), ShouldBeFalse)
			So(rows[1].Value(model.Generosity), ShouldEqual, 0.01)
		})
	})

	Convey("Given a panel without years", t, func() {
		_, err := ParseSeries([]byte("Country name,Life Ladder\nFinland,7\n"))
		So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
	})
}

func TestParseShapes(t *testing.T) {
	Convey("Given a feature collection", t, func() {
		features, err := ParseShapes([]byte(shapesJSON), "name")
		So(err, ShouldBeNil)
		So(len(features), ShouldEqual, 5)

		Convey("Then ids and names are resolved", func() {
			So(features[0].ID, ShouldEqual, "FIN")
			So(features[0].Name, ShouldEqual, "Finland")
			So(features[1].ID, ShouldEqual, "TCD")
			So(features[1].Name, ShouldEqual, "Chad")
		})

		Convey("Then missing ids are derived deterministically", func() {
			again, _ := ParseShapes([]byte(shapesJSON), "name")
			So(features[2].ID, ShouldNotBeEmpty)
			So(features[2].ID, ShouldEqual, again[2].ID)
		})

		Convey("Then reused ids are made unique", func() {
			So(features[3].ID, ShouldEqual, "-99")
			So(features[4].ID, ShouldEqual, "-99-1")
			_, err := snapshot.NewShapes(features)
			So(err, ShouldBeNil)
		})

		Convey("Then a suffix never takes an id another feature declares", func() {
			doc := `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"-99","properties":{"name":"N. Cyprus"},"geometry":null},
{"type":"Feature","id":"-99","properties":{"name":"Somaliland"},"geometry":null},
{"type":"Feature","id":"-99-1","properties":{"name":"Kosovo"},"geometry":null},
{"type":"Feature","id":"-99","properties":{"name":"Siachen"},"geometry":null}
]}`
			got, err := ParseShapes([]byte(doc), "name")
			So(err, ShouldBeNil)
			ids := []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
			So(ids, ShouldResemble, []string{"-99", "-99-2", "-99-1", "-99-3"})
			_, err = snapshot.NewShapes(got)
			So(err, ShouldBeNil)
		})

		Convey("Then the collection can be re-encoded", func() {
			data, err := EncodeShapes(features[:1], map[string]map[string]interface{}{"FIN": {"fill": "#004529"}})
			So(err, ShouldBeNil)
			var doc struct {
				Features []struct {
					ID         string                 `json:"id"`
					Properties map[string]interface{} `json:"properties"`
				} `json:"features"`
			}
			So(json.Unmarshal(data, &doc), ShouldBeNil)
			So(doc.Features[0].ID, ShouldEqual, "FIN")
			So(doc.Features[0].Properties["fill"], ShouldEqual, "#004529")
			So(doc.Features[0].Properties["name"], ShouldEqual, "Finland")
		})
	})

	Convey("Given invalid JSON", t, func() {
		_, err := ParseShapes([]byte("{"), "name")
		So(errors.Is(err, ErrMalformed), ShouldBeTrue)
	})
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	Convey("Given a loader", t, func() {
		l := New()

		Convey("When reading from files", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "whr.csv")
			So(os.WriteFile(path, []byte(snapshotCSV), 0o600), ShouldBeNil)

			recs, err := l.Records(ctx, path)

			Convey("Then a snapshot is produced", func() {
				So(err, ShouldBeNil)
				So(recs.Len(), ShouldEqual, 2)
			})
		})

		Convey("When reading from HTTP", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/series.csv":
					_, _ = w.Write([]byte(seriesCSV))
				case "/shapes.json":
					_, _ = w.Write([]byte(shapesJSON))
				default:
					http.NotFound(w, r)
				}
			}))
			defer srv.Close()

			series, err := l.Series(ctx, srv.URL+"/series.csv")
			So(err, ShouldBeNil)
			So(series.Years(), ShouldResemble, []int{2006, 2007})

			shapes, err := l.Shapes(ctx, srv.URL+"/shapes.json")
			So(err, ShouldBeNil)
			So(shapes.Len(), ShouldEqual, 5)

			_, err = l.Records(ctx, srv.URL+"/missing.csv")
			So(errors.Is(err, ErrSourceUnavailable), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := l.Records(ctx, filepath.Join(t.TempDir(), "nope.csv"))
			So(errors.Is(err, model.ErrLoadFailure), ShouldBeTrue)
		})

		Convey("When the source is empty", func() {
			_, err := l.Shapes(ctx, "")
			So(errors.Is(err, ErrSourceUnavailable), ShouldBeTrue)
		})

		Convey("When the CSV repeats a country", func() {
			path := filepath.Join(t.TempDir(), "dup.csv")
			So(os.WriteFile(path, []byte("Country name,Ladder score\nChad,4\nChad,5\n"), 0o600), ShouldBeNil)

			_, err := l.Records(ctx, path)
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})
	})
}
