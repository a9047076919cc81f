package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/squadlink/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Teams, convey.ShouldHaveLength, 20)
			convey.So(cfg.IdentityKey, convey.ShouldResemble, []string{"Player", "Nation", "Squad", "Pos"})
			convey.So(cfg.OutputColumns, convey.ShouldHaveLength, 78)
			convey.So(cfg.OutputColumns[0], convey.ShouldEqual, "Player")
			convey.So(cfg.MissingSentinel, convey.ShouldEqual, "N/a")
			convey.So(cfg.UnmatchedSentinel, convey.ShouldEqual, "N/A")
			convey.So(cfg.LinkMinMinutes, convey.ShouldEqual, 900)
			convey.So(cfg.ValuationPages, convey.ShouldEqual, 22)
			convey.So(cfg.Stage, convey.ShouldEqual, config.StageAll)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the squad column is not part of the identity key", func() {
			cfg.SquadColumn = "Team"
			err := cfg.Validate()

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the stage is unknown", func() {
			cfg.Stage = "publish"
			err := cfg.Validate()

			convey.Convey("Then validation fails naming the stage", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "publish")
			})
		})

		convey.Convey("When a table family is listed twice", func() {
			cfg.TableFamilies = append(cfg.TableFamilies, "stats_misc_9")
			err := cfg.Validate()

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate")
			})
		})

		convey.Convey("When a valuation CSV replaces scraping", func() {
			cfg.ValuationURL = ""
			cfg.ValuationPages = 0
			cfg.ValuationCSV = "values.csv"

			convey.Convey("Then the config is still valid", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
