package table

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given a normalizer with the default ordinal column", t, func() {
		n := NewNormalizer()

		Convey("When the table is not present", func() {
			_, err := n.Normalize(Raw{Family: "stats_keeper_9"})

			Convey("Then it is reported absent", func() {
				So(errors.Is(err, ErrAbsent), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "stats_keeper_9")
			})
		})

		Convey("When the table has no header", func() {
			_, err := n.Normalize(Raw{Family: "f", Present: true, Rows: [][]string{{"a"}}})

			Convey("Then it is reported absent", func() {
				So(errors.Is(err, ErrAbsent), ShouldBeTrue)
			})
		})

		Convey("When the table has an over-header, an ordinal column and repeated header rows", func() {
			raw := Raw{
				Family:  "stats_standard_9",
				Present: true,
				HeaderRows: [][]string{
					{"", "", "", "Playing Time", "Performance", "Per 90", ""},
					{"Rk", "Player", "Nation", "Min", "Gls", "Gls", ""},
				},
				Rows: [][]string{
					{"1", "Bukayo Saka", "eng ENG", "1,800", "10", "0.5", "x"},
					{"Rk", "Player", "Nation", "Min", "Gls", "Gls", ""},
					{"", "", "", "", "", "", ""},
					{"2", " Declan Rice ", "eng ENG"},
					{"3", "Kai Havertz", "ger GER", "2000", "9", "0.4", "y", "extra"},
				},
			}
			tbl, err := n.Normalize(raw)

			Convey("Then the last header row names the columns with duplicates suffixed", func() {
				So(err, ShouldBeNil)
				So(tbl.Columns, ShouldResemble, []string{"Player", "Nation", "Min", "Gls", "Gls.1", "Unnamed: 6"})
			})

			Convey("Then noise rows are dropped and rows are padded or truncated", func() {
				So(tbl.Rows, ShouldResemble, [][]string{
					{"Bukayo Saka", "eng ENG", "1,800", "10", "0.5", "x"},
					{"Declan Rice", "eng ENG", "", "", "", ""},
					{"Kai Havertz", "ger GER", "2000", "9", "0.4", "y"},
				})
			})
		})

		Convey("When the ordinal column is not first", func() {
			raw := Raw{
				Present:    true,
				HeaderRows: [][]string{{"Player", "Rk", "Min"}},
				Rows:       [][]string{{"A", "1", "100"}},
			}
			tbl, err := n.Normalize(raw)

			Convey("Then it is still dropped by name", func() {
				So(err, ShouldBeNil)
				So(tbl.Columns, ShouldResemble, []string{"Player", "Min"})
				So(tbl.Rows, ShouldResemble, [][]string{{"A", "100"}})
			})
		})

		Convey("When the first column is real data", func() {
			raw := Raw{
				Present:    true,
				HeaderRows: [][]string{{"Player", "Min"}},
				Rows:       [][]string{{"A", "100"}},
			}
			tbl, err := n.Normalize(raw)

			Convey("Then it is kept", func() {
				So(err, ShouldBeNil)
				So(tbl.Columns, ShouldResemble, []string{"Player", "Min"})
			})
		})

		Convey("When the table is present but has no rows", func() {
			tbl, err := n.Normalize(Raw{Present: true, HeaderRows: [][]string{{"Player"}}})

			Convey("Then an empty valid table is returned", func() {
				So(err, ShouldBeNil)
				So(tbl.Len(), ShouldEqual, 0)
				So(tbl.Columns, ShouldResemble, []string{"Player"})
			})
		})
	})

	Convey("Given a normalizer without an ordinal column", t, func() {
		n := NewNormalizer(WithOrdinalColumn(""))
		tbl, err := n.Normalize(Raw{Present: true, HeaderRows: [][]string{{"Rk", "Player"}}, Rows: [][]string{{"1", "A"}}})

		Convey("Then nothing is dropped", func() {
			So(err, ShouldBeNil)
			So(tbl.Columns, ShouldResemble, []string{"Rk", "Player"})
		})
	})
}

func TestUniqueNames(t *testing.T) {
	Convey("Given headers whose suffixed names already exist", t, func() {
		names := uniqueNames([]string{"a", "a.1", "a", "a"})

		Convey("Then taken suffixes are skipped", func() {
			So(names, ShouldResemble, []string{"a", "a.1", "a.2", "a.3"})
		})
	})

	Convey("Given a suffixed name that repeats itself", t, func() {
		names := uniqueNames([]string{"a", "a", "a.1", "a"})

		Convey("Then it is suffixed from its own base", func() {
			So(names, ShouldResemble, []string{"a", "a.1", "a.1.1", "a.2"})
		})
	})

	Convey("Given a statistics header that already carries a suffix", t, func() {
		tbl, err := NewNormalizer().Normalize(Raw{
			Present:    true,
			HeaderRows: [][]string{{"Player", "Gls", "Gls.1", "Gls", "Gls"}},
			Rows:       [][]string{{"A", "1", "2", "3", "4"}},
		})

		Convey("Then the repeats count up from the base name", func() {
			So(err, ShouldBeNil)
			So(tbl.Columns, ShouldResemble, []string{"Player", "Gls", "Gls.1", "Gls.2", "Gls.3"})
			So(tbl.Column("Gls.3"), ShouldResemble, []string{"4"})
		})
	})
}

func TestTableHelpers(t *testing.T) {
	Convey("Given two team tables", t, func() {
		a := Table{Columns: []string{"Player", "Min"}, Rows: [][]string{{"A", "100"}}}
		b := Table{Columns: []string{"Player", "Gls"}, Rows: [][]string{{"B", "3"}}}

		Convey("When a squad column is attached", func() {
			withSquad := a.WithColumn("Squad", "Arsenal")

			Convey("Then the original is untouched", func() {
				So(a.Columns, ShouldResemble, []string{"Player", "Min"})
				So(withSquad.Columns, ShouldResemble, []string{"Player", "Min", "Squad"})
				So(withSquad.Rows, ShouldResemble, [][]string{{"A", "100", "Arsenal"}})
			})

			Convey("Then attaching again overwrites the value", func() {
				again := withSquad.WithColumn("Squad", "Chelsea")
				So(again.Columns, ShouldHaveLength, 3)
				So(again.Column("Squad"), ShouldResemble, []string{"Chelsea"})
			})
		})

		Convey("When they are concatenated", func() {
			all := Concat(a, b)

			Convey("Then columns are unioned in first-seen order", func() {
				So(all.Columns, ShouldResemble, []string{"Player", "Min", "Gls"})
				So(all.Rows, ShouldResemble, [][]string{{"A", "100", ""}, {"B", "", "3"}})
				So(all.Has("Player", "Gls"), ShouldBeTrue)
				So(all.Has("Squad"), ShouldBeFalse)
				So(all.Column("Nope"), ShouldBeNil)
			})
		})

		Convey("When nothing is concatenated", func() {
			So(Concat().Len(), ShouldEqual, 0)
		})
	})
}
