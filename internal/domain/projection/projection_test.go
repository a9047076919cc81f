package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/squadlink/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

func wide() table.Table {
	return table.Table{
		Columns: []string{"Player", "Nation", "Squad", "Pos", "Age", "Min", "Gls", "stats_shooting_9_Sh"},
		Rows: [][]string{
			{"Zed", "eng ENG", "Arsenal", "FW", "24-100", "1,800", "10", ""},
			{"Amy", "fr FRA", "Chelsea", "DF", "30-001", "91", "x", "3"},
			{"Bob", "es ESP", "Fulham", "MF", "", "90", "1", "2"},
			{"Cal", "", "Fulham", "GK", "28-010", "", "0", "0"},
			{"Amy", "br BRA", "Arsenal", "MF", "22-200", "400", "2", "5"},
		},
	}
}

func TestProject(t *testing.T) {
	Convey("Given a projector with an allow-list naming an absent column", t, func() {
		p := New([]string{"Player", "Nation", "Squad", "Min", "Gls", "stats_keeper_9_GA90", "stats_shooting_9_Sh"})
		out, err := p.Project(wide())
		So(err, ShouldBeNil)

		Convey("Then only existing allow-listed columns are kept in order", func() {
			So(out.Columns, ShouldResemble, []string{"Player", "Nation", "Squad", "Min", "Gls", "stats_shooting_9_Sh"})
		})

		Convey("Then 90 minutes is excluded, 91 is included and non-numeric minutes are dropped", func() {
			So(out.Column("Player"), ShouldResemble, []string{"Amy", "Amy", "Zed"})
		})

		Convey("Then rows are stably sorted by player", func() {
			So(out.Column("Squad"), ShouldResemble, []string{"Chelsea", "Arsenal", "Arsenal"})
		})

		Convey("Then values are cleaned", func() {
			So(out.Rows[0], ShouldResemble, []string{"Amy", "FRA", "Chelsea", "91", "N/a", "3"})
			So(out.Rows[2], ShouldResemble, []string{"Zed", "ENG", "Arsenal", "1800", "10", "N/a"})
		})
	})

	Convey("Given custom options", t, func() {
		p := New([]string{"Player", "Nation", "Min"},
			WithSentinel("-"),
			WithMinMinutes(0),
			WithNationColumn(""),
			WithSortColumn("Min"),
			WithMinutesColumn("Min"),
		)
		out, err := p.Project(wide())

		Convey("Then they are honored", func() {
			So(err, ShouldBeNil)
			So(out.Column("Min"), ShouldResemble, []string{"1800", "400", "90", "91"})
			So(out.Column("Nation"), ShouldResemble, []string{"eng ENG", "br BRA", "es ESP", "fr FRA"})
		})
	})

	Convey("Given a table without the minutes column", t, func() {
		_, err := New([]string{"Player"}).Project(table.Table{Columns: []string{"Player"}})

		Convey("Then projection fails", func() {
			So(errors.Is(err, ErrMissingMinutes), ShouldBeTrue)
		})
	})
}

func TestParseNumber(t *testing.T) {
	Convey("Given raw numeric cells", t, func() {
		So(ParseNumber("1,234"), ShouldEqual, 1234)
		So(ParseNumber(" 12.5 "), ShouldEqual, 12.5)
		So(math.IsNaN(ParseNumber("")), ShouldBeTrue)
		So(math.IsNaN(ParseNumber("N/a")), ShouldBeTrue)
		So(math.IsNaN(ParseNumber("Inf")), ShouldBeTrue)
	})
}
