package merge

import (
	"errors"
	"testing"

	"github.com/okian/squadlink/internal/domain/dedupe"
	"github.com/okian/squadlink/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

var identityKey = []string{"Player", "Nation", "Squad", "Pos"}

func standard() Side {
	return Side{Family: "stats_standard_9", Table: table.Table{
		Columns: []string{"Player", "Nation", "Squad", "Pos", "Min"},
		Rows: [][]string{
			{"A", "ENG", "Arsenal", "FW", "900"},
			{"B", "FRA", "Arsenal", "DF", "300"},
		},
	}}
}

func TestMerge(t *testing.T) {
	Convey("Given a merger on the identity key", t, func() {
		m := New(identityKey)

		Convey("When a side table only has a row for A", func() {
			shooting := Side{Family: "stats_shooting_9", Table: table.Table{
				Columns: []string{"Player", "Nation", "Squad", "Pos", "stats_shooting_9_Sh"},
				Rows: [][]string{
					{"A", "ENG", "Arsenal", "FW", "12"},
					{"Z", "ESP", "Arsenal", "MF", "4"},
				},
			}}
			out, rep, err := m.Merge(standard(), shooting)

			Convey("Then every primary row appears once and B has missing side cells", func() {
				So(err, ShouldBeNil)
				So(out.Columns, ShouldResemble, []string{"Player", "Nation", "Squad", "Pos", "Min", "stats_shooting_9_Sh"})
				So(out.Rows, ShouldResemble, [][]string{
					{"A", "ENG", "Arsenal", "FW", "900", "12"},
					{"B", "FRA", "Arsenal", "DF", "300", ""},
				})
				So(rep.Rows, ShouldEqual, 2)
				So(rep.Duplicates, ShouldBeEmpty)
			})
		})

		Convey("When no side table is available", func() {
			out, _, err := m.Merge(standard())

			Convey("Then the primary table is returned as is", func() {
				So(err, ShouldBeNil)
				So(out.Len(), ShouldEqual, 2)
				So(out.Columns, ShouldHaveLength, 5)
			})
		})

		Convey("When a side table is present but empty", func() {
			empty := Side{Family: "stats_keeper_9", Table: table.Table{
				Columns: []string{"Player", "Nation", "Squad", "Pos", "stats_keeper_9_GA90"},
			}}
			out, _, err := m.Merge(standard(), empty)

			Convey("Then its columns are added with missing values", func() {
				So(err, ShouldBeNil)
				So(out.Len(), ShouldEqual, 2)
				So(out.Column("stats_keeper_9_GA90"), ShouldResemble, []string{"", ""})
			})
		})

		Convey("When keys match on player but differ on squad", func() {
			side := Side{Family: "stats_misc_9", Table: table.Table{
				Columns: []string{"Player", "Nation", "Squad", "Pos", "stats_misc_9_Fls"},
				Rows:    [][]string{{"A", "ENG", "Chelsea", "FW", "3"}},
			}}
			out, _, err := m.Merge(standard(), side)

			Convey("Then no value is joined", func() {
				So(err, ShouldBeNil)
				So(out.Column("stats_misc_9_Fls"), ShouldResemble, []string{"", ""})
			})
		})

		Convey("When a side table repeats a key", func() {
			side := Side{Family: "stats_gca_9", Table: table.Table{
				Columns: []string{"Player", "Nation", "Squad", "Pos", "stats_gca_9_SCA"},
				Rows: [][]string{
					{"A", "ENG", "Arsenal", "FW", "1"},
					{"A", "ENG", "Arsenal", "FW", "2"},
				},
			}}
			out, rep, err := m.Merge(standard(), side)

			Convey("Then rows multiply and the duplicate is reported", func() {
				So(err, ShouldBeNil)
				So(out.Len(), ShouldEqual, 3)
				So(rep.Duplicates["stats_gca_9"], ShouldEqual, 1)
				So(rep.Repeated["stats_gca_9"], ShouldResemble, []dedupe.Repeat{{Key: "A / ENG / Arsenal / FW", Extra: 1}})
				So(rep.Keys, ShouldResemble, map[string]int{"stats_standard_9": 2, "stats_gca_9": 1})
				So(rep.Repeated, ShouldNotContainKey, "stats_standard_9")
			})
		})

		Convey("When a side column collides with an existing one", func() {
			side := Side{Family: "stats_passing_9", Table: table.Table{
				Columns: []string{"Player", "Nation", "Squad", "Pos", "Min"},
			}}
			_, _, err := m.Merge(standard(), side)

			Convey("Then the merge fails", func() {
				So(errors.Is(err, ErrColumnCollision), ShouldBeTrue)
			})
		})

		Convey("When a side table lacks a key column", func() {
			side := Side{Family: "stats_defense_9", Table: table.Table{
				Columns: []string{"Player", "stats_defense_9_Tkl"},
				Rows:    [][]string{{"A", "5"}},
			}}
			out, rep, err := m.Merge(standard(), side)

			Convey("Then it is skipped and reported", func() {
				So(err, ShouldBeNil)
				So(out.Has("stats_defense_9_Tkl"), ShouldBeFalse)
				So(rep.Skipped, ShouldResemble, []string{"stats_defense_9"})
			})
		})

		Convey("When the primary table is empty", func() {
			_, _, err := m.Merge(Side{Family: "stats_standard_9"})

			Convey("Then the merge halts naming the primary family", func() {
				So(errors.Is(err, ErrMissingAnchor), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "stats_standard_9")
			})
		})

		Convey("When the primary table lacks a key column", func() {
			p := Side{Family: "stats_standard_9", Table: table.Table{
				Columns: []string{"Player", "Min"},
				Rows:    [][]string{{"A", "1"}},
			}}
			_, _, err := m.Merge(p)

			Convey("Then the merge fails", func() {
				So(errors.Is(err, ErrMissingKey), ShouldBeTrue)
			})
		})
	})
}
