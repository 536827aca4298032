package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/domain/timer"
	"github.com/okian/ladder/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.StoreInMemory = true
	cfg.HighlightTopN = 1
	return cfg
}

func country(name string, score float64) model.CountryRecord {
	return model.CountryRecord{
		Country:     name,
		LadderScore: score,
		Factors:     map[model.Factor]float64{model.GDP: score / 4, model.Freedom: score / 10},
	}
}

func yearRow(name string, year int, score float64) model.TimeSeriesRecord {
	return model.TimeSeriesRecord{CountryRecord: country(name, score), Year: year}
}

func newService(cfg *config.Config) (*service.Service, *timer.Manual) {
	clock := timer.NewManual()
	svc, err := service.New(cfg, service.WithScheduler(clock))
	So(err, ShouldBeNil)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc, clock
}

func publishAll(ctx context.Context, svc *service.Service) {
	recs, err := snapshot.NewRecords([]model.CountryRecord{
		country("Finland", 7.8),
		country("United States", 7.0),
		country("Chad", 4.1),
	})
	So(err, ShouldBeNil)
	shapes, err := snapshot.NewShapes([]model.ShapeFeature{
		{ID: "FIN", Name: "Finland"},
		{ID: "USA", Name: "United States of America"},
		{ID: "TCD", Name: "Chad"},
		{ID: "ATL", Name: "Atlantis"},
	})
	So(err, ShouldBeNil)
	series, err := snapshot.NewSeries([]model.TimeSeriesRecord{
		yearRow("Finland", 2010, 7.5),
		yearRow("United States", 2010, 7.2),
		yearRow("Chad", 2010, 4.0),
		yearRow("Finland", 2011, 7.4),
	})
	So(err, ShouldBeNil)

	So(svc.ReplaceRecords(ctx, recs), ShouldBeNil)
	So(svc.ReplaceShapes(ctx, shapes), ShouldBeNil)
	So(svc.ReplaceSeries(ctx, series), ShouldBeNil)
}

func feature(view types.MapView, id string) types.FeatureFill {
	for _, f := range view.Features {
		if f.FeatureID == id {
			return f
		}
	}
	return types.FeatureFill{}
}

func TestService_New(t *testing.T) {
	Convey("Given configuration", t, func() {
		Convey("When the year bounds are inverted", func() {
			cfg := testConfig()
			cfg.MinYear, cfg.MaxYear = 2023, 2006
			_, err := service.New(cfg)

			Convey("Then construction fails with a configuration error", func() {
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
			})
		})

		Convey("When nil is passed", func() {
			svc, err := service.New(nil)

			Convey("Then defaults are used", func() {
				So(err, ShouldBeNil)
				So(svc.Config().MinYear, ShouldEqual, 2006)
				So(svc.Animation().CurrentYear, ShouldEqual, 2023)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := newService(testConfig())

		Convey("Then stats report it as started", func() {
			stats := svc.GetStats(context.Background())
			So(stats["started"], ShouldEqual, true)
		})

		Convey("When stopping the service", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped and refuse work", func() {
				stats := svc.GetStats(context.Background())
				So(stats["started"], ShouldEqual, false)
				So(errors.Is(svc.SaveResponse(context.Background(), "initial", model.Evaluation{
					ResidingCountry:    "Finland",
					PreferredCountries: []string{"A", "B", "C"},
					ConfidenceLevel:    5,
				}), service.ErrStopped), ShouldBeTrue)
				So(svc.Start(context.Background()), ShouldEqual, service.ErrStopped)
			})
		})

		Reset(svc.Stop)
	})
}

func TestService_Availability(t *testing.T) {
	Convey("Given a service with nothing loaded", t, func() {
		svc, _ := newService(testConfig())
		defer svc.Stop()
		ctx := context.Background()

		Convey("When views are requested", func() {
			_, mapErr := svc.MapView(ctx)
			_, rankErr := svc.Ranking(ctx, 10)

			Convey("Then they report the pending datasets", func() {
				So(errors.Is(mapErr, service.ErrDataUnavailable), ShouldBeTrue)
				var unavailable *service.UnavailableError
				So(errors.As(mapErr, &unavailable), ShouldBeTrue)
				So(len(unavailable.Datasets), ShouldEqual, 2)
				So(unavailable.Datasets[0].Status, ShouldEqual, "pending")
				So(errors.Is(rankErr, service.ErrDataUnavailable), ShouldBeTrue)
			})

			Convey("And animation still works", func() {
				st, err := svc.StartAnimation(ctx)
				So(err, ShouldBeNil)
				So(st.Phase, ShouldEqual, animation.Playing)
			})
		})

		Convey("When only the snapshot is published", func() {
			recs, err := snapshot.NewRecords([]model.CountryRecord{country("Finland", 7.8)})
			So(err, ShouldBeNil)
			So(svc.ReplaceRecords(ctx, recs), ShouldBeNil)

			Convey("Then snapshot views work while map views wait for shapes", func() {
				entries, err := svc.Ranking(ctx, 0)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)

				_, err = svc.MapView(ctx)
				var unavailable *service.UnavailableError
				So(errors.As(err, &unavailable), ShouldBeTrue)
				So(unavailable.Datasets[0].Name, ShouldEqual, "shapes")
			})
		})
	})
}

func TestService_Load(t *testing.T) {
	Convey("Given dataset sources on disk", t, func() {
		dir := t.TempDir()
		good := filepath.Join(dir, "snapshot.csv")
		So(os.WriteFile(good, []byte("Country name,Ladder score\nFinland,7.741\nDenmark,7.583\n"), 0o600), ShouldBeNil)

		cfg := testConfig()
		cfg.SnapshotSource = good
		cfg.SeriesSource = filepath.Join(dir, "missing.csv")
		svc, _ := newService(cfg)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When loading each dataset", func() {
			So(svc.Load(ctx, service.DatasetSnapshot), ShouldBeNil)
			seriesErr := svc.Load(ctx, service.DatasetSeries)

			Convey("Then each keeps an independent status", func() {
				So(errors.Is(seriesErr, model.ErrLoadFailure), ShouldBeTrue)
				statuses := map[string]string{}
				for _, d := range svc.Datasets() {
					statuses[d.Name] = d.Status
				}
				So(statuses["snapshot"], ShouldEqual, "ready")
				So(statuses["series"], ShouldEqual, "failed")
				So(statuses["shapes"], ShouldEqual, "pending")

				entries, err := svc.Ranking(ctx, 0)
				So(err, ShouldBeNil)
				So(entries[0].Country, ShouldEqual, "Finland")
			})
		})

		Convey("When a dataset has no source", func() {
			err := svc.Load(ctx, service.DatasetShapes)

			Convey("Then the load fails without changing its status", func() {
				So(errors.Is(err, model.ErrLoadFailure), ShouldBeTrue)
			})
		})
	})
}

func TestService_MapView(t *testing.T) {
	Convey("Given a service with all datasets", t, func() {
		svc, clock := newService(testConfig())
		defer svc.Stop()
		ctx := context.Background()
		publishAll(ctx, svc)

		Convey("When projecting the snapshot map", func() {
			view, err := svc.MapView(ctx)
			So(err, ShouldBeNil)

			Convey("Then features are linked and colored", func() {
				So(len(view.Features), ShouldEqual, 4)

				usa := feature(view, "USA")
				So(usa.MatchKind, ShouldEqual, "fuzzy")
				So(usa.Country, ShouldEqual, "United States")
				So(usa.Confidence, ShouldBeGreaterThan, 0.8)
				So(usa.Fill, ShouldNotEqual, "#cccccc")

				atl := feature(view, "ATL")
				So(atl.MatchKind, ShouldEqual, "unmatched")
				So(atl.Fill, ShouldEqual, "#cccccc")
				So(atl.Highlighted, ShouldBeFalse)
			})

			Convey("And the leading country blinks", func() {
				fin := feature(view, "FIN")
				So(fin.MatchKind, ShouldEqual, "exact")
				So(fin.Highlighted, ShouldBeTrue)
				So(fin.Fill, ShouldEqual, "#ffd700")

				clock.Fire()
				So(svc.Flush(ctx), ShouldBeNil)
				view, err = svc.MapView(ctx)
				So(err, ShouldBeNil)
				fin = feature(view, "FIN")
				So(fin.Highlighted, ShouldBeFalse)
				So(fin.Fill, ShouldNotEqual, "#ffd700")
			})
		})

		Convey("When the link report is requested", func() {
			report, err := svc.Links(ctx)
			So(err, ShouldBeNil)

			Convey("Then the summary counts every kind", func() {
				So(report.Summary.Exact, ShouldEqual, 2)
				So(report.Summary.Fuzzy, ShouldEqual, 1)
				So(report.Summary.Unmatched, ShouldEqual, 1)
			})
		})

		Convey("When the shapes are exported", func() {
			data, err := svc.ShapesGeoJSON(ctx)
			So(err, ShouldBeNil)

			Convey("Then linked countries are attached", func() {
				var fc struct {
					Features []struct {
						Properties map[string]interface{} `json:"properties"`
					} `json:"features"`
				}
				So(json.Unmarshal(data, &fc), ShouldBeNil)
				So(len(fc.Features), ShouldEqual, 4)
				So(fc.Features[1].Properties["country"], ShouldEqual, "United States")
			})
		})
	})
}

func TestService_Selection(t *testing.T) {
	Convey("Given a service with all datasets", t, func() {
		svc, _ := newService(testConfig())
		defer svc.Stop()
		ctx := context.Background()
		publishAll(ctx, svc)

		Convey("When a matched feature is activated", func() {
			sel, err := svc.OnFeatureActivated(ctx, "USA")
			So(err, ShouldBeNil)

			Convey("Then the ranking is filtered by its score", func() {
				So(sel.Country, ShouldEqual, "United States")
				So(sel.Threshold, ShouldEqual, 7.0)

				entries, err := svc.Ranking(ctx, 0)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Country, ShouldEqual, "Finland")
				So(entries[1].Country, ShouldEqual, "United States")
			})

			Convey("And the map marks the selection", func() {
				view, err := svc.MapView(ctx)
				So(err, ShouldBeNil)
				So(feature(view, "USA").Selected, ShouldBeTrue)
				So(feature(view, "USA").Highlighted, ShouldBeTrue)
			})

			Convey("And an unmatched feature clears it", func() {
				sel, err := svc.OnFeatureActivated(ctx, "ATL")
				So(errors.Is(err, model.ErrInvalidSelectionTarget), ShouldBeTrue)
				So(sel.Country, ShouldEqual, "")
				So(sel.Threshold, ShouldEqual, 0)

				entries, err := svc.Ranking(ctx, 0)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 3)
			})

			Convey("And a reload without the country clears it", func() {
				recs, err := snapshot.NewRecords([]model.CountryRecord{country("Finland", 7.8)})
				So(err, ShouldBeNil)
				So(svc.ReplaceRecords(ctx, recs), ShouldBeNil)
				So(svc.Selection().Country, ShouldEqual, "")
			})
		})

		Convey("When an unknown feature is activated", func() {
			_, err := svc.OnFeatureActivated(ctx, "nowhere")

			Convey("Then the selection is cleared", func() {
				So(errors.Is(err, model.ErrInvalidSelectionTarget), ShouldBeTrue)
				So(svc.Selection().Country, ShouldEqual, "")
			})
		})

		Convey("When a subscriber is attached", func() {
			frames, cancel := svc.Subscribe()
			defer cancel()
			_, err := svc.SelectCountry(ctx, "Chad")
			So(err, ShouldBeNil)

			Convey("Then it receives a selection frame", func() {
				var got types.Frame
				deadline := time.After(time.Second)
				for got.Kind != service.FrameSelection {
					select {
					case got = <-frames:
					case <-deadline:
						So("selection frame", ShouldEqual, "timeout")
						return
					}
				}
				So(got.Payload.(types.Selection).Country, ShouldEqual, "Chad")
			})
		})
	})
}

func TestService_Animation(t *testing.T) {
	Convey("Given a service with a short year range", t, func() {
		cfg := testConfig()
		cfg.MinYear, cfg.MaxYear = 2006, 2009
		svc, clock := newService(cfg)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When playback starts and the clock ticks", func() {
			st, err := svc.StartAnimation(ctx)
			So(err, ShouldBeNil)
			So(st.CurrentYear, ShouldEqual, 2006)

			clock.FireN(2)
			So(svc.Flush(ctx), ShouldBeNil)

			Convey("Then the cursor advances once per tick", func() {
				So(svc.Animation().CurrentYear, ShouldEqual, 2008)
				So(svc.Animation().Phase, ShouldEqual, animation.Playing)
			})

			Convey("And it stops at the last year", func() {
				clock.FireN(5)
				So(svc.Flush(ctx), ShouldBeNil)
				So(svc.Animation().CurrentYear, ShouldEqual, 2009)
				So(svc.Animation().Phase, ShouldEqual, animation.Idle)
				So(clock.Active(), ShouldEqual, 0)
			})

			Convey("And seek pauses playback", func() {
				st, err := svc.SeekAnimation(ctx, 2007)
				So(err, ShouldBeNil)
				So(st.CurrentYear, ShouldEqual, 2007)
				So(st.Phase, ShouldEqual, animation.Paused)

				_, err = svc.SeekAnimation(ctx, 2030)
				So(errors.Is(err, animation.ErrYearOutOfRange), ShouldBeTrue)
			})

			Convey("And toggle stops it", func() {
				st, err := svc.ToggleAnimation(ctx)
				So(err, ShouldBeNil)
				So(st.Phase, ShouldEqual, animation.Idle)
				So(clock.Active(), ShouldEqual, 0)
			})
		})
	})
}

func TestService_YearMap(t *testing.T) {
	Convey("Given a service with a reference country", t, func() {
		cfg := testConfig()
		cfg.ReferenceCountry = "United States"
		svc, _ := newService(cfg)
		defer svc.Stop()
		ctx := context.Background()
		publishAll(ctx, svc)

		Convey("When nothing is selected", func() {
			view, err := svc.YearMap(ctx, 2010)
			So(err, ShouldBeNil)

			Convey("Then only countries at or above the reference are colored", func() {
				So(view.Year, ShouldEqual, 2010)
				So(feature(view, "FIN").Fill, ShouldNotEqual, "#cccccc")
				So(feature(view, "USA").Fill, ShouldNotEqual, "#cccccc")
				So(feature(view, "TCD").Fill, ShouldEqual, "#cccccc")
				So(feature(view, "TCD").MatchKind, ShouldEqual, "exact")
			})
		})

		Convey("When Finland is selected", func() {
			_, err := svc.SelectCountry(ctx, "Finland")
			So(err, ShouldBeNil)
			view, err := svc.YearMap(ctx, 2010)
			So(err, ShouldBeNil)

			Convey("Then the selection replaces the reference", func() {
				So(feature(view, "FIN").Fill, ShouldNotEqual, "#cccccc")
				So(feature(view, "USA").Fill, ShouldEqual, "#cccccc")
				So(feature(view, "FIN").Selected, ShouldBeTrue)
			})
		})

		Convey("When a year has no rows", func() {
			view, err := svc.YearMap(ctx, 2015)

			Convey("Then every shape is unmatched", func() {
				So(err, ShouldBeNil)
				for _, f := range view.Features {
					So(f.MatchKind, ShouldEqual, "unmatched")
				}
			})
		})

		Convey("When the year is outside the bounds", func() {
			_, err := svc.YearMap(ctx, 1990)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, animation.ErrYearOutOfRange), ShouldBeTrue)
			})
		})
	})
}

func TestService_YearMapDefaultReference(t *testing.T) {
	Convey("Given the default reference country", t, func() {
		svc, _ := newService(testConfig())
		defer svc.Stop()
		ctx := context.Background()
		publishAll(ctx, svc)

		Convey("When the reference is spelled differently from the panel", func() {
			view, err := svc.YearMap(ctx, 2010)
			So(err, ShouldBeNil)

			Convey("Then it is linked and filters the year", func() {
				So(feature(view, "FIN").Fill, ShouldNotEqual, "#cccccc")
				So(feature(view, "USA").Fill, ShouldNotEqual, "#cccccc")
				So(feature(view, "TCD").Fill, ShouldEqual, "#cccccc")
			})
		})

		Convey("When the reference has no row that year", func() {
			view, err := svc.YearMap(ctx, 2011)
			So(err, ShouldBeNil)

			Convey("Then no country is colored", func() {
				So(feature(view, "FIN").MatchKind, ShouldEqual, "exact")
				for _, f := range view.Features {
					So(f.Fill, ShouldEqual, "#cccccc")
				}
			})
		})
	})

	Convey("Given the reference filter disabled", t, func() {
		cfg := testConfig()
		cfg.ReferenceCountry = ""
		svc, _ := newService(cfg)
		defer svc.Stop()
		ctx := context.Background()
		publishAll(ctx, svc)

		Convey("Then every matched country is colored", func() {
			view, err := svc.YearMap(ctx, 2010)
			So(err, ShouldBeNil)
			So(feature(view, "TCD").Fill, ShouldNotEqual, "#cccccc")
			So(feature(view, "ATL").Fill, ShouldEqual, "#cccccc")
		})
	})
}

func TestService_Aggregates(t *testing.T) {
	Convey("Given a service with a snapshot", t, func() {
		svc, _ := newService(testConfig())
		defer svc.Stop()
		ctx := context.Background()
		publishAll(ctx, svc)

		Convey("When comparing factors of the top two", func() {
			cmp, err := svc.Averages(ctx, 2)
			So(err, ShouldBeNil)

			Convey("Then the subset is averaged against everyone", func() {
				So(len(cmp), ShouldEqual, len(model.ContributingFactors))
				So(cmp[0].Factor, ShouldEqual, model.GDP)
				So(cmp[0].Subset, ShouldAlmostEqual, (7.8+7.0)/8, 1e-9)
				So(cmp[0].Global, ShouldAlmostEqual, (7.8+7.0+4.1)/12, 1e-9)
			})
		})

		Convey("When ranking by a composite", func() {
			out, err := svc.Composite(ctx, []model.Factor{model.GDP, model.Freedom}, 2)
			So(err, ShouldBeNil)

			Convey("Then the limit applies", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].Country, ShouldEqual, "Finland")
			})
		})

		Convey("When sizing bubbles", func() {
			out, err := svc.Bubbles(ctx, model.GDP, 0)
			So(err, ShouldBeNil)

			Convey("Then the default subset size caps the result", func() {
				So(len(out), ShouldEqual, 3)
				So(out[0].Radius, ShouldEqual, 80)
			})
		})

		Convey("When legends are requested", func() {
			stops, err := svc.Legend(service.LegendYear, 3)
			So(err, ShouldBeNil)
			_, bad := svc.Legend("pie", 3)

			Convey("Then they span the configured domain", func() {
				So(len(stops), ShouldEqual, 3)
				So(stops[0].Value, ShouldEqual, 6)
				So(stops[2].Value, ShouldEqual, 8)
				So(errors.Is(bad, service.ErrUnknownView), ShouldBeTrue)
			})
		})
	})
}

func TestService_Responses(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := newService(testConfig())
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a valid response is saved", func() {
			e := model.Evaluation{
				ResidingCountry:    "Finland",
				PreferredCountries: []string{"Denmark", "Iceland", "Sweden"},
				ConfidenceLevel:    7,
			}
			So(svc.SaveResponse(ctx, model.PhaseInitial, e), ShouldBeNil)

			Convey("Then it can be read back and exported", func() {
				got, err := svc.Response(ctx, model.PhaseInitial)
				So(err, ShouldBeNil)
				So(got.ConfidenceLevel, ShouldEqual, 7)

				data, err := svc.ExportResponses(ctx)
				So(err, ShouldBeNil)
				var doc map[string]model.Evaluation
				So(json.Unmarshal(data, &doc), ShouldBeNil)
				So(doc[model.PhaseInitial].PreferredCountries, ShouldResemble, e.PreferredCountries)
			})
		})

		Convey("When an invalid response is saved", func() {
			err := svc.SaveResponse(ctx, model.PhaseFinal, model.Evaluation{
				ResidingCountry:    "Finland",
				PreferredCountries: []string{"Denmark"},
				ConfidenceLevel:    11,
			})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrInvalidEvaluation), ShouldBeTrue)
			})
		})
	})
}
